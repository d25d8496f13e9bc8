/*
Package notify delivers lock record transitions to subscribed webhooks.

Each subscriber receives every transition of a record at most once and in
the order the transitions happened. Delivery runs in the background and its
failures never affect the ledger.
*/
package notify
