// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election implements the tabulation use cases over a store.Store.

	svc := election.New(election.Deps{Store: s, Audit: sink, Provisioner: p})

Services groups:

  - Elections: elections and ballot boxes
  - Observers: observer registry and chief observer provisioning
  - Workflow: protocol submission and approval
  - Alliances: alliance registry and party pooling
  - Aggregator: certified vote totals
  - Tabulator: D'Hondt seat projection

# Approval

AI-filled protocols start pending and need a chief observer to approve or
reject them. Manually entered protocols are approved on entry. Only
certified results (approved or auto_approved) are aggregated.

# Entry Window

Dates are compared as calendar days in Deps.Location. Protocols may be
entered from the day before the election; non-admins may edit them up to
seven days after it.

Audit and provisioning failures are logged and counted but never undo the
primary write.
*/
package election
