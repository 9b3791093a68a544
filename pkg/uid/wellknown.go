// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package uid

// InvokeIDThisSP is THIS_SP, the self-reference used as invoking_id for
// session-local methods (Authenticate, Random). Properties and StartSession
// are invoked on InvokeIDSMU instead.
var (
	InvokeIDNull   = New(0x0000000000000000)
	InvokeIDThisSP = New(0x0000000000000001)
	InvokeIDSMU    = New(0x00000000000000FF)
)

// Authority UIDs common to the Opal-family SSCs.
var (
	AuthorityAnybody            = New(0x0000000900000001)
	AuthoritySID                = New(0x0000000900000006)
	AuthorityPSID               = New(0x00000009000101FF) // Opal Feature Set: PSID
	LockingAuthorityAdmin1      = New(0x0000000900010001)
	LockingAuthorityBandMaster0 = New(0x0000000900008001)
)

// GlobalRangeRowUID is the Global Range row of the Locking table, covering
// the whole LBA space.
var GlobalRangeRowUID = New(0x0000080200000001)

// SP UIDs.
var (
	AdminSP             = New(0x0000020500000001)
	LockingSP           = New(0x0000020500000002)
	EnterpriseLockingSP = New(0x0000020501000001) // Enterprise SSC
)

// C_PIN credential rows on the Admin SP.
var (
	AdminCPINSIDRow  = New(0x0000000B00000001)
	AdminCPINMSIDRow = New(0x0000000B00008402)
)

// AdminTPerInfoRow is the Admin SP's single TPerInfo object, describing
// the TPer itself (GUDID, firmware/protocol versions, supported SSCs).
var AdminTPerInfoRow = New(0x0000020100000001)

// Base tables.
var (
	TableTable    = New(0x0000000100000000)
	MethodIDTable = New(0x0000000600000000)
)

// Method UIDs invoked via the session manager invoking ID (InvokeIDSMU).
var (
	MethodIDProperties    = New(0x0000000600000001)
	MethodIDStartSession  = New(0x0000000600000002)
	MethodIDSyncSession   = New(0x0000000600000003)
	MethodIDCloseSession  = New(0x0000000600000004)
)

// Method UIDs invoked against an object/table invoking ID.
var (
	MethodIDGet          = New(0x0000000600000016)
	MethodIDSet          = New(0x0000000600000017)
	MethodIDNext         = New(0x0000000600000008)
	MethodIDAuthenticate = New(0x000000060000001C)
	MethodIDGetACL       = New(0x000000060000000D)
	MethodIDGenKey       = New(0x0000000600000010)
	MethodIDRevertSP     = New(0x0000000600000011)
	MethodIDRevert       = New(0x0000000600000202)
	MethodIDActivate     = New(0x0000000600000203)
	MethodIDRandom       = New(0x0000000600000601)

	// Enterprise SSC uses a distinct set of method UIDs for the subset it
	// implements, mirroring the pre-Core-2.0 draft it was based on.
	MethodIDEnterpriseGet          = New(0x0000000600000006)
	MethodIDEnterpriseSet          = New(0x0000000600000007)
	MethodIDEnterpriseAuthenticate = New(0x000000060000000C)
)
