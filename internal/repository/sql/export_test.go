package sql

import "database/sql"

// GetTxFromStore is a test helper to extract the transaction a store is bound to.
func GetTxFromStore(store *Store) *sql.Tx {
	return store.txn
}

// TranslateError exposes translateError to black-box tests.
func TranslateError(op string, err error) error {
	return translateError(op, err)
}
