package ledger

import "errors"

// ErrRecordNotFound — запись с таким ID отсутствует в журнале
// (не существовала или вытеснена).
var ErrRecordNotFound = errors.New("run record not found")
