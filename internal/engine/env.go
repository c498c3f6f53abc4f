package engine

import "os"

// envLookup wraps os.LookupEnv behind an indirection so tests can stub it
// without touching the real process environment.
var envLookup = os.LookupEnv
