package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
)

// intArg parses positional argument idx, accepting decimal, 0x hex, 0o octal and 0b binary.
func intArg(c *cli.Context, idx int, name string, min, max int) (int, error) {
	if c.Args().Len() <= idx {
		return 0, errors.Errorf("missing %s", name)
	}
	arg := c.Args().Get(idx)
	v, err := cast.ToIntE(arg)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", name, arg)
	}
	if v < min || v > max {
		return 0, errors.Errorf("%s %s is outside %d-%d", name, arg, min, max)
	}
	return v, nil
}

func byteArg(c *cli.Context, idx int, name string) (byte, error) {
	v, err := intArg(c, idx, name, 0, 0xff)
	return byte(v), err
}

func addressArg(c *cli.Context) (byte, error) {
	v, err := intArg(c, 0, "address", 0, 0x7f)
	return byte(v), err
}

// byteArgs parses every positional argument from idx on.
func byteArgs(c *cli.Context, idx int, name string) ([]byte, error) {
	var out []byte
	for i := idx; i < c.Args().Len(); i++ {
		b, err := byteArg(c, i, name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
