package lock

import (
	"github.com/iov-one/custody"
	"github.com/iov-one/custody/crypto"
	"github.com/iov-one/custody/errors"
)

func (l *Ledger) loadRoster(db custody.ReadOnlyKVStore) (RosterSnapshot, error) {
	var all []Custodian
	if _, err := l.roster.All(db, &all); err != nil {
		return nil, errors.Wrap(err, "roster")
	}
	return NewRosterSnapshot(all), nil
}

// Roster returns a snapshot of the current custodian roster.
func (l *Ledger) Roster() (RosterSnapshot, error) {
	return l.loadRoster(l.db)
}

// Custodians returns all custodians, including revoked ones.
func (l *Ledger) Custodians() ([]Custodian, error) {
	var all []Custodian
	if _, err := l.roster.All(l.db, &all); err != nil {
		return nil, errors.Wrap(err, "roster")
	}
	return all, nil
}

// Custodian returns the roster entry of given address.
func (l *Ledger) Custodian(addr custody.Address) (*Custodian, error) {
	var c Custodian
	if err := l.roster.One(l.db, addr, &c); err != nil {
		return nil, errors.Wrapf(err, "custodian %s", addr)
	}
	return &c, nil
}

// AddCustodian appends an active custodian identified by given public key
// to the roster. The roster can never hold more active custodians than the
// quorum total.
func (l *Ledger) AddCustodian(pubKey crypto.PublicKey, name string) (*Custodian, error) {
	if err := pubKey.Validate(); err != nil {
		return nil, errors.Field("PubKey", err, "")
	}
	l.rosterMu.Lock()
	defer l.rosterMu.Unlock()

	c := &Custodian{
		Address: pubKey.Address(),
		PubKey:  pubKey,
		Active:  true,
		Name:    name,
		AddedAt: custody.AsUnixTime(l.clock.Now()),
	}
	err := l.commit(func(db custody.KVStore) error {
		switch err := l.roster.Has(db, c.Address); {
		case err == nil:
			return errors.Wrapf(errors.ErrDuplicate, "custodian %s", c.Address)
		case !errors.ErrNotFound.Is(err):
			return err
		}
		roster, err := l.loadRoster(db)
		if err != nil {
			return err
		}
		if uint64(roster.ActiveCount()) >= uint64(l.quorum.TotalSigners) {
			return errors.Wrapf(errors.ErrState, "roster already has %d active custodians", roster.ActiveCount())
		}
		_, err = l.roster.Put(db, c.Address, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("custodian added", "address", c.Address, "name", name)
	return c, nil
}

// RevokeCustodian deactivates a custodian. A revoked custodian can no
// longer create or sign records, but its existing signatures still count.
func (l *Ledger) RevokeCustodian(addr custody.Address) (*Custodian, error) {
	l.rosterMu.Lock()
	defer l.rosterMu.Unlock()

	var c Custodian
	err := l.commit(func(db custody.KVStore) error {
		if err := l.roster.One(db, addr, &c); err != nil {
			return errors.Wrapf(err, "custodian %s", addr)
		}
		if !c.Active {
			return errors.Wrapf(errors.ErrState, "custodian %s already revoked", addr)
		}
		c.Active = false
		c.RevokedAt = custody.AsUnixTime(l.clock.Now())
		_, err := l.roster.Put(db, c.Address, &c)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("custodian revoked", "address", addr)
	return &c, nil
}
