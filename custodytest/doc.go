/*
Package custodytest provides helpers for testing custody packages: keys,
identifiers, a controllable clock and store constructors.
*/
package custodytest
