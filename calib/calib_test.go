// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/go-lpc/evcam"
	"github.com/go-lpc/evcam/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()
}

func TestLastProfileName(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"name"},
		Values: [][]driver.Value{
			{"outdoor-bright"},
		},
	}, func(ctx context.Context) error {
		name, err := db.LastProfileName(ctx)
		if err != nil {
			t.Fatalf("could not retrieve last profile: %+v", err)
		}
		if got, want := name, "outdoor-bright"; got != want {
			t.Fatalf("invalid last profile: got=%q, want=%q", got, want)
		}
		return nil
	})
}

func TestLastCameraSerial(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"serial"},
		Values: [][]driver.Value{
			{"EVCAM-0042"},
		},
	}, func(ctx context.Context) error {
		serial, err := db.LastCameraSerial(ctx)
		if err != nil {
			t.Fatalf("could not retrieve last camera serial: %+v", err)
		}
		if got, want := serial, "EVCAM-0042"; got != want {
			t.Fatalf("invalid last camera serial: got=%q, want=%q", got, want)
		}
		return nil
	})
}

func TestIntegratorName(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"integrator_name"},
		Values: [][]driver.Value{
			{"LPC-Clermont"},
		},
	}, func(ctx context.Context) error {
		name, err := db.IntegratorName(ctx, "EVCAM-0042")
		if err != nil {
			t.Fatalf("could not retrieve integrator name: %+v", err)
		}
		if got, want := name, "LPC-Clermont"; got != want {
			t.Fatalf("invalid integrator name: got=%q, want=%q", got, want)
		}
		return nil
	})
}

func TestDeadPixels(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"x", "y"},
		Values: [][]driver.Value{
			{int64(10), int64(20)},
			{int64(511), int64(600)},
		},
	}, func(ctx context.Context) error {
		pixels, err := db.DeadPixels(ctx, "EVCAM-0042")
		if err != nil {
			t.Fatalf("could not retrieve dead pixels: %+v", err)
		}
		want := []DeadPixel{{X: 10, Y: 20}, {X: 511, Y: 600}}
		if len(pixels) != len(want) {
			t.Fatalf("invalid dead pixels: got=%v, want=%v", pixels, want)
		}
		for i, p := range want {
			if pixels[i] != p {
				t.Fatalf("dead pixel %d: got=%v, want=%v", i, pixels[i], p)
			}
		}
		return nil
	})
}

func TestMaskSuppress(t *testing.T) {
	mask := NewMask([]DeadPixel{{X: 1, Y: 2}})

	events := []evcam.EventCD{
		{X: 0, Y: 0, P: 1, T: 10},
		{X: 1, Y: 2, P: 0, T: 11},
		{X: 3, Y: 4, P: 1, T: 12},
	}
	got := mask.Suppress(events)
	if len(got) != 2 {
		t.Fatalf("got %d events after suppression, want 2", len(got))
	}
	if got[0].X != 0 || got[1].X != 3 {
		t.Fatalf("wrong events survived suppression: %+v", got)
	}

	var empty Mask
	if got := empty.Suppress(events[:1]); len(got) != 1 {
		t.Fatalf("an empty mask must pass events through, got %d", len(got))
	}
}

func TestQueryContext(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open calib db: %+v", err)
	}
	defer db.Close()

	const query = "SELECT serial FROM cameras ORDER BY calibrated_at DESC LIMIT 1"

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"serial"},
		Values: [][]driver.Value{
			{"EVCAM-0042"},
		},
	}, func(ctx context.Context) error {
		rows, err := db.QueryContext(context.Background(), query)
		if err != nil {
			t.Fatalf("could not execute query %q: %+v", query, err)
		}
		defer rows.Close()

		if !rows.Next() {
			t.Fatalf("expected at least one row")
		}
		var serial string
		if err := rows.Scan(&serial); err != nil {
			t.Fatalf("could not scan row: %+v", err)
		}
		if got, want := serial, "EVCAM-0042"; got != want {
			t.Fatalf("invalid serial: got=%q, want=%q", got, want)
		}
		return nil
	})
}
