package property

import "github.com/rotisserie/eris"

// ErrPropertyNotFound is returned when a property does not exist or has been
// soft-deleted.
var ErrPropertyNotFound = eris.New("property: not found")

// ErrAccessDenied is returned when a property belongs to a different user.
var ErrAccessDenied = eris.New("property: access denied")
