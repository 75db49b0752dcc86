package token

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/keyring"
)

// FuzzManagerDecode exercises token decoding with arbitrary strings.
// Decoding must never panic and must fail with one of the two sentinel errors.
func FuzzManagerDecode(f *testing.F) {
	ring, err := keyring.New(nil, testKID, testSecret)
	if err != nil {
		f.Fatal(err)
	}
	m, err := NewManager(Config{
		Issuer:   testIssuer,
		Audience: testAudience,
		Ring:     ring,
		Clock:    clock.NewFake(testStart),
	})
	if err != nil {
		f.Fatal(err)
	}

	claims, _ := m.Issue("install-12345", time.Minute)
	if valid, err := m.Encode(claims); err == nil {
		f.Add(valid)
	}
	f.Add("")
	f.Add(".")
	f.Add("a.b")
	f.Add("a.b.c")
	f.Add("e30.AAAA")
	f.Add("bnVsbA.AAAA")
	f.Add("W10.AAAA")

	f.Fuzz(func(t *testing.T, input string) {
		got, err := m.Decode(input)
		if err == nil {
			if got.InstallID == "" {
				t.Fatal("Decode returned empty install id without error")
			}
			return
		}
		if !errors.Is(err, ErrInvalid) && !errors.Is(err, ErrExpired) {
			t.Fatalf("unexpected error class: %v", err)
		}
	})
}
