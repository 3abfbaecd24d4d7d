// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calib holds types to describe the calibration and
// configuration database for an event camera: bias register sets, noise
// filter thresholds and the detector's most recently applied
// configuration, all retrieved over MySQL.
package calib // import "github.com/go-lpc/evcam/calib"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const host = "localhost"

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve calibration and
// configuration data from the camera's calibration database.
type DB struct {
	db   *sql.DB
	name string // name of the calibration database
}

// Open opens a connection to the named calibration database.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("calib: could not open %q db: %w", dbname, err)
	}

	if err := ping(db, dbname); err != nil {
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("calib: could not ping %q db: %w", dbname, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.db.Close()
}

// QueryContext runs an arbitrary query against the calibration database,
// for callers that need access beyond the convenience methods below.
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastProfileName returns the name of the most recently applied bias
// profile.
func (db *DB) LastProfileName(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM profiles ORDER BY applied_at DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("calib: could not query last profile: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := rows.Scan(&name); err != nil {
			return name, fmt.Errorf("calib: could not scan last profile: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("calib: could not scan profiles: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("calib: context error while retrieving last profile: %w", err)
	}
	return name, nil
}

// LastCameraSerial returns the serial number of the most recently
// calibrated camera.
func (db *DB) LastCameraSerial(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var serial string
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT serial FROM cameras ORDER BY calibrated_at DESC LIMIT 1",
	)
	if err != nil {
		return serial, fmt.Errorf("calib: could not query last camera: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := rows.Scan(&serial); err != nil {
			return serial, fmt.Errorf("calib: could not scan last camera: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return serial, fmt.Errorf("calib: could not scan cameras: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return serial, fmt.Errorf("calib: context error while retrieving last camera: %w", err)
	}
	return serial, nil
}

// IntegratorName returns the integrator name recorded for the camera
// identified by serial, used to seed recording headers.
func (db *DB) IntegratorName(ctx context.Context, serial string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var name string
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT integrator_name FROM cameras WHERE serial=?",
		serial,
	)
	if err != nil {
		return name, fmt.Errorf("calib: could not query integrator name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := rows.Scan(&name); err != nil {
			return name, fmt.Errorf("calib: could not scan integrator name: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("calib: could not scan cameras: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("calib: context error while retrieving integrator name: %w", err)
	}
	return name, nil
}

// DeadPixels returns the dead-pixel mask recorded for the camera
// identified by serial.
func (db *DB) DeadPixels(ctx context.Context, serial string) ([]DeadPixel, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var pixels []DeadPixel
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT dead_pixels.x, dead_pixels.y FROM dead_pixels
JOIN cameras ON dead_pixels.camera_id=cameras.identifier
WHERE cameras.serial=?
`,
		serial,
	)
	if err != nil {
		return pixels, fmt.Errorf("calib: could not query dead pixels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p DeadPixel
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return pixels, fmt.Errorf("calib: could not scan dead pixel: %w", err)
		}
		pixels = append(pixels, p)
	}
	if err := rows.Err(); err != nil {
		return pixels, fmt.Errorf("calib: could not scan db for dead pixels: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return pixels, fmt.Errorf("calib: context error while retrieving dead pixels: %w", err)
	}
	return pixels, nil
}

// BiasProfile returns the bias register set named profile for the camera
// identified by serial.
func (db *DB) BiasProfile(ctx context.Context, profile, serial string) ([]BiasRegister, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	regs := make([]BiasRegister, 0, 8)
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT bias_registers.* FROM bias_registers
JOIN profiles ON bias_registers.profile_id=profiles.identifier
JOIN cameras  ON bias_registers.camera_id=cameras.identifier
WHERE (
	profiles.name=? AND cameras.serial=?
)
`,
		profile, serial,
	)
	if err != nil {
		return regs, fmt.Errorf("calib: could not run bias profile query: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var r BiasRegister
		if err := rows.Scan(&r.PrimaryID, &r.ProfileID, &r.CameraID, &r.Name, &r.Value); err != nil {
			return regs, fmt.Errorf("calib: could not scan row %d for bias profile: %w", i, err)
		}
		i++
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return regs, fmt.Errorf("calib: could not scan db for bias profile: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return regs, fmt.Errorf("calib: context error while retrieving bias profile: %w", err)
	}
	return regs, nil
}

// NoiseFilterConfigs returns every stored noise-filter threshold
// configuration.
func (db *DB) NoiseFilterConfigs(ctx context.Context) ([]NoiseFilterConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfgs []NoiseFilterConfig
	rows, err := db.db.QueryContext(ctx, "SELECT * FROM noise_filter_configs")
	if err != nil {
		return cfgs, fmt.Errorf("calib: could not run noise filter query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c NoiseFilterConfig
		if err := rows.Scan(&c.ID, &c.Name, &c.WindowUS, &c.MinEvents); err != nil {
			return cfgs, fmt.Errorf("calib: could not scan noise filter config: %w", err)
		}
		cfgs = append(cfgs, c)
	}
	if err := rows.Err(); err != nil {
		return cfgs, fmt.Errorf("calib: could not scan db for noise filter configs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return cfgs, fmt.Errorf("calib: context error while retrieving noise filter configs: %w", err)
	}
	return cfgs, nil
}
