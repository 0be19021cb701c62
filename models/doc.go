// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateElectionRequest, UpdateElectionStatusRequest
  - CreateBallotBoxRequest
  - ObserverRequest
  - AllianceRequest
  - ResultRequest: the submitted protocol (counts, votes, photos, filled_by_ai)
  - RejectResultRequest: reason

# Domain Types

  - Election with its Contests (single_seat or proportional)
  - BallotBox, Observer, Alliance
  - ElectionResult: one protocol per ballot box per election
  - Tally, CategoryTally, BucketTotal: certified aggregates
  - SeatAllocation, SeatLine: D'Hondt projections
  - AuditRecord, ObserverAccount

# Validation

Struct tags are checked with go-playground/validator through Validate,
which returns errs.ValidationErrors keyed by JSON field name.

# Constants

Approval states:

	ApprovalAutoApproved = "auto_approved"
	ApprovalPending      = "pending"
	ApprovalApproved     = "approved"
	ApprovalRejected     = "rejected"

Only auto_approved and approved are certified (see IsCertified).
*/
package models
