// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package alert

import "testing"

func TestNotifyNoopWithoutCredentials(t *testing.T) {
	a := New(Config{})
	if err := a.Notify("subject", "body"); err != nil {
		t.Fatalf("Notify with an empty config should be a silent no-op, got: %v", err)
	}
}

func TestConfigValid(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"missing targets", Config{Usr: "u", Pwd: "p", Server: "s", Port: 587}, false},
		{"complete", Config{Usr: "u", Pwd: "p", Server: "s", Port: 587, Targets: []string{"a@b.com"}}, true},
	} {
		if got := tc.cfg.valid(); got != tc.want {
			t.Errorf("%s: valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
