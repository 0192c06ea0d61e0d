package shared

// LedgerReconcileLockKey guards the reconciliation job across workers.
const LedgerReconcileLockKey = "dawa:ledger:reconcile:lock"
