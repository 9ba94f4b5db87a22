package model

import "testing"

func TestCollectionPath(t *testing.T) {
	if got := CollectionPath("pubike-prod"); got != "artifacts/pubike-prod/public/data/appointments" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := CollectionPath(""); got != "artifacts/default-app-id/public/data/appointments" {
		t.Fatalf("unexpected default path %q", got)
	}
}

func TestServiceTypeValid(t *testing.T) {
	for _, s := range ServiceTypes {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if ServiceType("Pintura").Valid() {
		t.Fatal("unknown service type accepted")
	}
}

func TestWithinServiceHours(t *testing.T) {
	cases := map[string]bool{"07:59": false, "08:00": true, "12:30": true, "18:00": true, "18:01": false}
	for in, want := range cases {
		if got := WithinServiceHours(in); got != want {
			t.Fatalf("WithinServiceHours(%q) = %v, want %v", in, got, want)
		}
	}
}
