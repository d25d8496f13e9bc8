/*
Package lock implements the custody ledger: one LockRecord per source chain
transaction, collecting custodian signatures until the configured quorum is
reached and finally released once the claim was minted on the destination
ledger.

A record moves only forward

	Pending -> Locked -> Released

and every transition is published as an Event to the configured EventSink.
Mutations of a single record are serialized, while records with different
transaction IDs are processed independently.
*/
package lock
