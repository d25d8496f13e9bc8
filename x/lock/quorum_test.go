package lock

import (
	"testing"

	"github.com/iov-one/custody/custodytest"
	"github.com/iov-one/custody/errors"
	"github.com/iov-one/custody/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuorumPolicy(t *testing.T) {
	Convey("Given a 2 of 3 quorum", t, func() {
		q := QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}
		So(q.Validate(), ShouldBeNil)

		Convey("one signature is not enough", func() {
			So(IsSatisfied(0, q), ShouldBeFalse)
			So(IsSatisfied(1, q), ShouldBeFalse)
		})

		Convey("two or more signatures are enough", func() {
			So(IsSatisfied(2, q), ShouldBeTrue)
			So(IsSatisfied(3, q), ShouldBeTrue)
		})

		Convey("a negative count is never enough", func() {
			So(IsSatisfied(-1, q), ShouldBeFalse)
		})
	})

	Convey("Given a roster", t, func() {
		a, b, c := custodytest.NewAddress(), custodytest.NewAddress(), custodytest.NewAddress()
		roster := NewRosterSnapshot([]Custodian{
			{Address: a, Active: true},
			{Address: b, Active: false},
		})

		Convey("active members are authorized", func() {
			So(IsAuthorized(a, roster), ShouldBeTrue)
		})

		Convey("revoked members are not authorized", func() {
			So(IsAuthorized(b, roster), ShouldBeFalse)
		})

		Convey("strangers are not authorized", func() {
			So(IsAuthorized(c, roster), ShouldBeFalse)
			So(IsAuthorized(nil, roster), ShouldBeFalse)
			So(IsAuthorized(a, nil), ShouldBeFalse)
		})

		Convey("only active members are listed", func() {
			So(roster.ActiveCount(), ShouldEqual, 1)
			So(roster.Active(), ShouldResemble, RosterOf(a).Active())
		})
	})
}

func TestQuorumConfigValidate(t *testing.T) {
	cases := map[string]struct {
		conf    QuorumConfig
		wantErr *errors.Error
	}{
		"2 of 3":          {conf: QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}},
		"1 of 1":          {conf: QuorumConfig{RequiredSignatures: 1, TotalSigners: 1}},
		"3 of 3":          {conf: QuorumConfig{RequiredSignatures: 3, TotalSigners: 3}},
		"zero required":   {conf: QuorumConfig{RequiredSignatures: 0, TotalSigners: 3}, wantErr: errors.ErrInput},
		"more than total": {conf: QuorumConfig{RequiredSignatures: 4, TotalSigners: 3}, wantErr: errors.ErrInput},
		"empty":           {conf: QuorumConfig{}, wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.conf.Validate()
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %v error, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestQuorumIsStoredOnce(t *testing.T) {
	Convey("Given an empty store", t, func() {
		db := store.NewMemStore()

		Convey("loading fails before the quorum is saved", func() {
			_, err := LoadQuorum(db)
			So(errors.ErrNotFound.Is(err), ShouldBeTrue)
		})

		Convey("a saved quorum can be loaded", func() {
			q := QuorumConfig{RequiredSignatures: 2, TotalSigners: 3}
			So(SaveQuorum(db, q), ShouldBeNil)

			got, err := LoadQuorum(db)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, q)

			Convey("saving the same quorum again is accepted", func() {
				So(SaveQuorum(db, q), ShouldBeNil)
			})

			Convey("a different quorum is rejected", func() {
				err := SaveQuorum(db, QuorumConfig{RequiredSignatures: 3, TotalSigners: 3})
				So(errors.ErrImmutable.Is(err), ShouldBeTrue)

				got, err := LoadQuorum(db)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, q)
			})
		})

		Convey("an invalid quorum is never stored", func() {
			err := SaveQuorum(db, QuorumConfig{RequiredSignatures: 4, TotalSigners: 3})
			So(errors.ErrInput.Is(err), ShouldBeTrue)
			So(db.Len(), ShouldEqual, 0)
		})
	})
}
