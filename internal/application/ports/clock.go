package ports

import "time"

// Clock fuente de tiempo inyectable (tests con fecha fija).
type Clock func() time.Time

// SystemClock devuelve la hora actual en UTC.
func SystemClock() time.Time { return time.Now().UTC() }
