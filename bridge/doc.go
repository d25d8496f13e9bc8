/*
Package bridge drives the custody ledger from untrusted requests.

A Coordinator accepts lock requests for source chain transactions, makes
sure the deposit is final and prices it before a lock record is created.
Custodian signatures are forwarded to the ledger and a locked record is
released on the destination ledger exactly once.

All external calls (source chain verification, price lookup and the
destination release) are made through the Verifier, PriceOracle and
Releaser interfaces and never while a ledger record is locked.
*/
package bridge
