// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends e-mail notifications when the capture pipeline
// hits a fatal condition, such as a USB disconnect, via
// gopkg.in/gomail.v2.
package alert // import "github.com/go-lpc/evcam/alert"

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

// Config holds the SMTP credentials and recipient list used to send
// alert mail. ConfigFromEnv reads it from the conventional MAIL_*
// environment variables.
type Config struct {
	Usr     string
	Pwd     string
	Server  string
	Port    int
	Targets []string
}

// ConfigFromEnv builds a Config from MAIL_USERNAME, MAIL_PASSWORD,
// MAIL_SERVER, MAIL_PORT and MAIL_TGTS (a comma-separated recipient
// list).
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	var targets []string
	if v := os.Getenv("MAIL_TGTS"); v != "" {
		targets = strings.Split(v, ",")
	}
	return Config{
		Usr:     os.Getenv("MAIL_USERNAME"),
		Pwd:     os.Getenv("MAIL_PASSWORD"),
		Server:  os.Getenv("MAIL_SERVER"),
		Port:    port,
		Targets: targets,
	}
}

// valid reports whether cfg has enough information to attempt a send.
func (cfg Config) valid() bool {
	return cfg.Usr != "" && cfg.Pwd != "" && cfg.Server != "" && cfg.Port != 0 && len(cfg.Targets) > 0
}

// Alerter sends alert e-mails over a TLS SMTP connection. It satisfies
// capture.Alerter.
type Alerter struct {
	cfg Config
}

// New returns an Alerter using cfg.
func New(cfg Config) *Alerter {
	return &Alerter{cfg: cfg}
}

// Notify sends an alert mail with the given subject and body to every
// configured recipient. It is a no-op, returning nil, if cfg is missing
// credentials or recipients.
func (a *Alerter) Notify(subject, body string) error {
	if !a.cfg.valid() {
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", a.cfg.Usr)
	msg.SetHeader("Bcc", a.cfg.Targets...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dial := mail.NewDialer(a.cfg.Server, a.cfg.Port, a.cfg.Usr, a.cfg.Pwd)
	dial.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	if err := dial.DialAndSend(msg); err != nil {
		return fmt.Errorf("alert: could not send mail: %w", err)
	}
	return nil
}
