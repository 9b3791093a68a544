// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// tcgcorediag drives ComID allocation, Level 0 discovery, and a
// control-session Properties negotiation against a single device, and
// dumps what it finds. It is test/diagnostic tooling, not an ownership or
// locking workflow.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tcgsed/go-sedcore/pkg/core"
	"github.com/tcgsed/go-sedcore/pkg/drive"
	"github.com/tcgsed/go-sedcore/pkg/hash"
	"github.com/tcgsed/go-sedcore/pkg/rpc"
	"github.com/tcgsed/go-sedcore/pkg/session"
	"github.com/tcgsed/go-sedcore/pkg/uid"
)

var cli struct {
	Device      string `arg:"" required:"" help:"Path to SED device (e.g. /dev/nvme0)"`
	MetricsAddr string `optional:"" help:"Serve Prometheus metrics on this address (e.g. :9419) for the duration of the run"`
	PSID        string `optional:"" env:"TCGCOREDIAG_PSID" help:"PSID printed on the drive label, tried against the Admin SP if set"`
	Verbose     bool   `optional:"" short:"v" help:"Enable debug logging"`
}

func main() {
	kong.Parse(&cli, kong.Name("tcgcorediag"), kong.Description("TCG Storage Core diagnostic tool"), kong.UsageOnError())

	if cli.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	spew.Config.Indent = "  "

	var reg *prometheus.Registry
	if cli.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cli.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Warn("metrics server exited")
			}
		}()
		defer srv.Close()
		logrus.WithField("addr", cli.MetricsAddr).Info("serving prometheus metrics")
	}

	if err := run(reg); err != nil {
		logrus.WithError(err).Fatal("diagnostic run failed")
	}
}

func run(reg *prometheus.Registry) error {
	ctx := context.Background()

	d, err := drive.Open(cli.Device)
	if err != nil {
		return fmt.Errorf("drive.Open: %w", err)
	}
	defer d.Close()

	fmt.Println("===> DRIVE SECURITY INFORMATION")
	id, err := d.Identify()
	if err != nil {
		return fmt.Errorf("drive.Identify: %w", err)
	}
	fmt.Printf("Drive identity: %s\n", id)
	spl, err := drive.SecurityProtocols(d)
	if err != nil {
		return fmt.Errorf("drive.SecurityProtocols: %w", err)
	}
	fmt.Printf("SecurityProtocols: %+v\n", spl)

	fmt.Println("\n===> TCG FEATURE DISCOVERY")
	d0, err := core.Discovery0(d)
	if err != nil {
		return fmt.Errorf("core.Discovery0: %w", err)
	}
	spew.Dump(d0)

	comID, err := selectComID(d, d0)
	if err != nil {
		return err
	}
	fmt.Printf("\nUsing ComID 0x%08x\n", comID)

	fmt.Println("\n===> TCG ADMIN SP SESSION")
	var engOpts []rpc.EngineOption
	if reg != nil {
		engOpts = append(engOpts, rpc.WithRegisterer(reg))
	}
	eng := rpc.NewEngine(d, comID, engOpts...)
	defer eng.Close()

	cs, err := session.NewControlSession(ctx, eng, d0)
	if err != nil {
		return fmt.Errorf("session.NewControlSession: %w", err)
	}
	fmt.Println("Negotiated TPerProperties:")
	spew.Dump(cs.TPerProperties())

	adminSession, err := cs.Start(ctx, uid.AdminSP, true, uid.UID{}, nil)
	if err != nil {
		return fmt.Errorf("cs.Start(AdminSP): %w", err)
	}
	defer adminSession.Close(ctx)

	msidPIN, err := session.AdminMSIDPIN(ctx, adminSession)
	if err != nil {
		fmt.Printf("session.AdminMSIDPIN failed: %v\n", err)
	} else {
		fmt.Printf("MSID PIN:\n%s", hex.Dump(msidPIN))
	}

	rnd, err := session.Random(ctx, adminSession, 8)
	if err != nil {
		fmt.Printf("session.Random failed: %v\n", err)
	} else {
		fmt.Printf("Generated random bytes: % x\n", rnd)
	}

	tperInfo, err := session.AdminTPerInfo(ctx, adminSession)
	if err != nil {
		fmt.Printf("session.AdminTPerInfo failed: %v\n", err)
	} else {
		fmt.Println("TPerInfo:")
		spew.Dump(tperInfo)
	}

	lcs, err := session.AdminSPLifeCycleState(ctx, adminSession, uid.LockingSP)
	if err != nil {
		fmt.Printf("session.AdminSPLifeCycleState failed: %v\n", err)
	} else {
		fmt.Printf("Locking SP lifecycle state: %s\n", lcs)
	}

	if msidPIN != nil {
		if err := session.Authenticate(ctx, adminSession, uid.AuthoritySID, msidPIN); err != nil {
			fmt.Printf("session.Authenticate (SID) failed: %v\n", err)
		} else {
			fmt.Println("Authenticated as SID using the factory MSID PIN")
		}
	}

	if cli.PSID != "" {
		psidHash := hash.HashSedutilDTA(cli.PSID, string(mustSerial(d)))
		if err := session.Authenticate(ctx, adminSession, uid.AuthorityPSID, psidHash); err != nil {
			fmt.Printf("session.Authenticate (PSID) failed: %v\n", err)
		} else {
			fmt.Println("Authenticated as PSID")
		}
	}

	fmt.Println("\nDiagnostics done")
	return nil
}

func mustSerial(d drive.DriveIntf) []byte {
	s, err := d.SerialNumber()
	if err != nil {
		return nil
	}
	return s
}

// selectComID auto-allocates an extended ComID, falling back to the base
// ComID advertised by discovery's primary SSC feature if allocation or
// validation fails.
func selectComID(d drive.DriveIntf, d0 *core.Level0Discovery) (core.ComID, error) {
	comID, err := core.GetComID(d)
	if err == nil {
		if valid, verr := core.IsComIDValid(d, comID); verr == nil && valid {
			if rerr := core.StackReset(d, comID); rerr == nil {
				return comID, nil
			}
		}
	}
	logrus.Debug("auto ComID allocation unavailable, falling back to a base ComID")
	switch {
	case d0.Enterprise != nil:
		return core.ComID(d0.Enterprise.BaseComID), nil
	case d0.OpalV2 != nil:
		return core.ComID(d0.OpalV2.BaseComID), nil
	case d0.OpalV1 != nil:
		return core.ComID(d0.OpalV1.BaseComID), nil
	case d0.RubyV1 != nil:
		return core.ComID(d0.RubyV1.BaseComID), nil
	case d0.PyriteV2 != nil:
		return core.ComID(d0.PyriteV2.BaseComID), nil
	case d0.PyriteV1 != nil:
		return core.ComID(d0.PyriteV1.BaseComID), nil
	default:
		return core.ComIDInvalid, fmt.Errorf("no supported SSC found in discovery")
	}
}
