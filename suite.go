package ordinos

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is used by the network layer to unmarshal registered messages.
// None of the messages carry group elements, but onet requires a suite.
var Suite = suites.MustFind("Ed25519")
