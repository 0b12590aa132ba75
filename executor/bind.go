package executor

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/jonwraymond/toolcall/toolerr"
)

// DecodeArgs decodes a tool-call argument map into out, which must be a
// pointer to a struct. Field names come from json tags; scalar types are
// weakly converted ("3" -> 3) because model-produced arguments are loose.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// Bind adapts a typed operation to Method. Arguments that cannot be decoded
// into P fail with PluginServerError before fn runs.
func Bind[P any](fn func(ctx context.Context, params P, cc Context) (Result, error)) Method {
	return func(ctx context.Context, args map[string]any, cc Context) (Result, error) {
		var params P
		if err := DecodeArgs(args, &params); err != nil {
			return Result{}, toolerr.Wrap(toolerr.KindPluginServerError, err,
				fmt.Sprintf("invalid arguments: %v", err))
		}
		return fn(ctx, params, cc)
	}
}
