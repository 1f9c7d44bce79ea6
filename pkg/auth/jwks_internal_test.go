package auth

import (
	"reflect"
	"testing"
)

func TestGroupsFromClaimsFlat(t *testing.T) {
	claims := map[string]interface{}{
		"cognito:groups": []interface{}{"admins", "users"},
	}
	got := groupsFromClaims(claims, "cognito:groups")
	if !reflect.DeepEqual(got, []string{"admins", "users"}) {
		t.Fatalf("expected [admins users], got %v", got)
	}
}

func TestGroupsFromClaimsNested(t *testing.T) {
	claims := map[string]interface{}{
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"moderator"},
		},
	}
	got := groupsFromClaims(claims, "realm_access.roles")
	if !reflect.DeepEqual(got, []string{"moderator"}) {
		t.Fatalf("expected [moderator], got %v", got)
	}
}

func TestGroupsFromClaimsMissingOrMalformed(t *testing.T) {
	claims := map[string]interface{}{
		"groups": "not-a-list",
	}
	if got := groupsFromClaims(claims, "groups"); got != nil {
		t.Fatalf("malformed claim should yield no groups, got %v", got)
	}
	if got := groupsFromClaims(claims, "absent"); got != nil {
		t.Fatalf("absent claim should yield no groups, got %v", got)
	}
	if got := groupsFromClaims(claims, "a.b.c"); got != nil {
		t.Fatalf("absent nested claim should yield no groups, got %v", got)
	}
}

func TestSplitDots(t *testing.T) {
	if got := splitDots("a.b.c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
	if got := splitDots("plain"); !reflect.DeepEqual(got, []string{"plain"}) {
		t.Fatalf("got %v", got)
	}
}
