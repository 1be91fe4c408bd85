package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_ClosedSet(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err)
	assert.False(t, Status("Forwarded").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusReleased.Terminal())
	assert.True(t, StatusRejected.Terminal())
	for _, s := range []Status{StatusPending, StatusApproved, StatusWaitingHead, StatusWaitingMayor, StatusReadyForRelease} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("mayor")
	require.NoError(t, err)
	assert.Equal(t, RoleCityMayor, r)

	r, err = ParseRole("approver")
	require.NoError(t, err)
	assert.Equal(t, RoleApprover, r)

	_, err = ParseRole("client")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestApplicantProfile_NameAndKey(t *testing.T) {
	p := ApplicantProfile{FirstName: " Maria ", LastName: "Santos", BirthDate: "1980-02-14"}
	assert.Equal(t, "Maria Santos", p.FullName())
	assert.Equal(t, "maria|santos|1980-02-14", p.Key())

	p.MiddleName = "Cruz"
	assert.Equal(t, "Maria Cruz Santos", p.FullName())
}

func TestApplication_SignaturePathFor(t *testing.T) {
	app := &Application{
		SignaturePath:         "client.png",
		StaffSignaturePath:    "staff.png",
		ApproverSignaturePath: "approver.png",
		MayorSignaturePath:    "mayor.png",
	}
	assert.Equal(t, "client.png", app.SignaturePathFor(RoleClient))
	assert.Equal(t, "staff.png", app.SignaturePathFor(RoleAdmin))
	assert.Equal(t, "approver.png", app.SignaturePathFor(RoleApprover))
	assert.Equal(t, "mayor.png", app.SignaturePathFor(RoleCityMayor))
	assert.Empty(t, app.SignaturePathFor(Role("auditor")))
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = ListFilter{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 200, f.Offset())
}
