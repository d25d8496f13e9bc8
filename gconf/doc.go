/*
Package gconf provides a toolset for managing durable configuration.

Each package that needs a configuration defines a model implementing the
Configuration interface and stores a single instance of it under the
"_c:<package name>" key. Loading and saving always validates the value.

Configuration that must never change once the system is running, such as
the custodian quorum, is stored with SaveOnce.
*/
package gconf
