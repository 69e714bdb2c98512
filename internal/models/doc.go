// Package models defines the core domain models for Tripper.
//
// # Models
//
//   - User: a registered account; trip participants are Users
//   - Trip: a shared event owning expenses and settlements
//   - Expense: a cost paid by one participant and split among several
//   - Settlement: an open debtor→creditor transfer derived from expenses
//   - SettlementRecord: an append-only log entry for a settled payment
//
// # Design Principles
//
//  1. **Money is decimal**: amounts are shopspring decimals, serialized as
//     strings; the backend keeps full precision and rounding happens at
//     presentation time only
//  2. **Balances are derived**: no model stores a net balance; balances are
//     recomputed from expenses and settlement history on every read, so a
//     half-applied mutation cannot leave a stale aggregate behind
//  3. **Avoid circular references**: relationships use ID strings, not
//     pointers
package models
