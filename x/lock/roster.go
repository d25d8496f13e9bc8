package lock

import (
	"sort"

	"github.com/iov-one/custody"
)

// Roster answers whether an identity is currently allowed to act as a
// custodian.
type Roster interface {
	IsActive(custody.Address) bool
}

// RosterSnapshot is an immutable view of the custodian roster.
type RosterSnapshot map[string]bool

var _ Roster = RosterSnapshot(nil)

// NewRosterSnapshot builds a snapshot from the list of custodians.
func NewRosterSnapshot(custodians []Custodian) RosterSnapshot {
	rs := make(RosterSnapshot, len(custodians))
	for _, c := range custodians {
		rs[string(c.Address)] = c.Active
	}
	return rs
}

// RosterOf returns a snapshot where all given addresses are active.
func RosterOf(addrs ...custody.Address) RosterSnapshot {
	rs := make(RosterSnapshot, len(addrs))
	for _, a := range addrs {
		rs[string(a)] = true
	}
	return rs
}

func (rs RosterSnapshot) IsActive(a custody.Address) bool {
	return rs[string(a)]
}

// ActiveCount returns the number of active custodians.
func (rs RosterSnapshot) ActiveCount() int {
	var n int
	for _, active := range rs {
		if active {
			n++
		}
	}
	return n
}

// Active returns the addresses of all active custodians in byte order.
func (rs RosterSnapshot) Active() []custody.Address {
	var out []custody.Address
	for a, active := range rs {
		if active {
			out = append(out, custody.Address(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
	return out
}
