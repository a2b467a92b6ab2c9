package probe

import "github.com/viant/rpcchannel"

type Options struct {
	rpcchannel.Options
	ConfigURL string `short:"c" long:"config" description:"channel options YAML URL"`
	Method    string `short:"m" long:"method" description:"method to call" required:"true"`
	Params    string `short:"p" long:"params" description:"JSON encoded params" default:"{}"`
	ID        string `long:"id" description:"request identifier, generated when empty"`
	Observe   bool   `long:"observe" description:"place the request in the observed pool"`
	Store     bool   `long:"store" description:"place the request in the stored pool"`
	WaitMs    int    `short:"w" long:"wait" description:"response wait time in ms" default:"30000"`
}
