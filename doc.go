/*
Package custody defines the types and interfaces shared by the custody
bridge: storage, persistence, identifiers of source chain transactions,
destination ledger addresses and time.

The bridge locks Bitcoin that was sent to the custodians and releases a
matching claim on a destination ledger once a quorum of custodians agreed
on the lock. The state machine lives in x/lock, the orchestration of the
external collaborators in the bridge package.
*/
package custody
