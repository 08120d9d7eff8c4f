package ampere

import (
	"github.com/levenlabs/go-lflag"
)

// Configured returns a Client built from flags.
func Configured() Client {
	addr := lflag.String("ampere-addr", defaultBaseURL, "Base URL of the Ampere API")
	token := lflag.RequiredString("ampere-token", "Bearer token for the Ampere API")

	var c struct{ Client }
	lflag.Do(func() {
		c.Client = New(*addr, StaticToken(*token))
	})
	return &c
}
