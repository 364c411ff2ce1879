package cli

import (
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func (st *state) rtcNowAction(c *cli.Context) error {
	rtc, err := st.openRTC()
	if err != nil {
		return err
	}
	now, err := rtc.Now(c.Context)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", now.Format(time.RFC3339))
	return nil
}

func (st *state) rtcSetAction(c *cli.Context) error {
	t := time.Now()
	if c.Args().Present() {
		var err error
		if t, err = time.Parse(time.RFC3339, c.Args().First()); err != nil {
			return errors.Wrap(err, "invalid time")
		}
	}
	rtc, err := st.openRTC()
	if err != nil {
		return err
	}
	t = t.UTC()
	if err := rtc.Adjust(c.Context, t); err != nil {
		return err
	}
	printf(c.App.Writer, "clock set to %s", t.Truncate(time.Second).Format(time.RFC3339))
	return nil
}

func (st *state) rtcInitAction(c *cli.Context) error {
	rtc, err := st.openRTC()
	if err != nil {
		return err
	}
	return rtc.Init(c.Context)
}

func (st *state) lcdInitAction(c *cli.Context) error {
	display, err := st.openDisplay()
	if err != nil {
		return err
	}
	return display.Init(c.Context)
}

func (st *state) lcdPrintAction(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New("missing text")
	}
	display, err := st.openDisplay()
	if err != nil {
		return err
	}
	if err := display.SetCursor(c.Context, c.Int(flagCol), c.Int(flagRow)); err != nil {
		return err
	}
	return display.Print(c.Context, c.Args().First())
}

func (st *state) lcdClearAction(c *cli.Context) error {
	display, err := st.openDisplay()
	if err != nil {
		return err
	}
	return display.Clear(c.Context)
}

func (st *state) lcdContrastAction(c *cli.Context) error {
	contrast, err := intArg(c, 0, "contrast", 0, 63)
	if err != nil {
		return err
	}
	display, err := st.openDisplay()
	if err != nil {
		return err
	}
	return display.SetContrast(c.Context, byte(contrast))
}
