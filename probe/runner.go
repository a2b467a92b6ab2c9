package probe

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/viant/rpcchannel"
	"github.com/viant/rpcchannel/channel"
)

func Run(args []string) error {
	return RunWithWriter(context.Background(), args, os.Stdout)
}

// RunWithWriter parses args, performs the call and writes the result to w.
func RunWithWriter(ctx context.Context, args []string, w io.Writer) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	channelOptions := &options.Options
	if options.ConfigURL != "" {
		loaded, err := rpcchannel.LoadOptions(ctx, options.ConfigURL)
		if err != nil {
			return err
		}
		channelOptions = loaded
	}
	awaiter := channel.NewAwaiter(nil)
	ch, err := rpcchannel.New(ctx, awaiter, channelOptions)
	if err != nil {
		return err
	}
	defer ch.Terminate()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(options.WaitMs)*time.Millisecond)
	defer cancel()
	service := New(ch, awaiter, w)
	return service.Call(ctx, options.Method, options.Params, options.callOptions()...)
}
