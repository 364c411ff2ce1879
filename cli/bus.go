package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"go.viam.com/softi2c/softi2c"
)

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02x", b)
}

// scanAction prints the acknowledging addresses as a grid of 16 addresses per row.
func (st *state) scanAction(c *cli.Context) error {
	bus, err := st.openBus()
	if err != nil {
		return err
	}
	found, err := bus.Scan(c.Context)
	if err != nil {
		return err
	}
	present := map[byte]bool{}
	for _, addr := range found {
		present[addr] = true
	}

	t := table.NewWriter()
	header := table.Row{""}
	for col := 0; col < 16; col++ {
		header = append(header, fmt.Sprintf("%x", col))
	}
	t.AppendHeader(header)
	for base := 0; base < 0x80; base += 16 {
		row := table.Row{fmt.Sprintf("%02x", base)}
		for col := 0; col < 16; col++ {
			addr := byte(base + col)
			switch {
			case addr < 0x03 || addr > 0x77:
				row = append(row, "")
			case present[addr]:
				row = append(row, fmt.Sprintf("%02x", addr))
			default:
				row = append(row, "--")
			}
		}
		t.AppendRow(row)
	}
	printf(c.App.Writer, "%s", t.Render())
	printf(c.App.Writer, "%d device(s) found", len(found))
	return nil
}

// readAction reads one register with the status API, or a block of registers through a handle.
func (st *state) readAction(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	reg, err := byteArg(c, 1, "register")
	if err != nil {
		return err
	}
	count := 1
	if c.Args().Len() > 2 {
		if count, err = intArg(c, 2, "count", 1, 255); err != nil {
			return err
		}
	}
	bus, err := st.openBus()
	if err != nil {
		return err
	}

	if count == 1 {
		v, status := st.master.ReadRegister(c.Context, addr, reg)
		if err := status.Err(); err != nil {
			return errors.Wrapf(err, "reading register %s of %s", hexByte(reg), hexByte(addr))
		}
		printf(c.App.Writer, "%s: %s", hexByte(reg), hexByte(v))
		return nil
	}

	handle, err := bus.OpenHandle(addr)
	if err != nil {
		return err
	}
	data, err := handle.ReadBlockData(c.Context, reg, uint8(count))
	if closeErr := handle.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	printRegisters(c, reg, data)
	return nil
}

func (st *state) writeAction(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	data, err := byteArgs(c, 1, "byte")
	if err != nil {
		return err
	}
	if _, err := st.openBus(); err != nil {
		return err
	}
	masked := st.maskedFailures()
	if err := st.master.WriteTransaction(c.Context, addr, data, true).Err(); err != nil {
		return errors.Wrapf(err, "writing to %s", hexByte(addr))
	}
	if err := st.checkMasked(masked, "writing to "+hexByte(addr)); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %d byte(s) to %s", len(data), hexByte(addr))
	return nil
}

// dumpAction reads registers through the periph registry, the way a periph device driver would.
func (st *state) dumpAction(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	count := 16
	if c.Args().Len() > 1 {
		if count, err = intArg(c, 1, "count", 1, 256); err != nil {
			return err
		}
	}
	if st.periph < 0 {
		return errors.Errorf("dump needs the bus registered with periph, use --%s", flagPeriph)
	}
	if _, err := st.openBus(); err != nil {
		return err
	}
	pb, err := i2creg.Open(busName)
	if err != nil {
		return err
	}
	defer func() {
		if err := pb.Close(); err != nil {
			st.logger.Error(err)
		}
	}()
	dev := &i2c.Dev{Bus: pb, Addr: uint16(addr)}
	data := make([]byte, count)
	if err := dev.Tx([]byte{0x00}, data); err != nil {
		return err
	}
	printRegisters(c, 0x00, data)
	return nil
}

func (st *state) maskedFailures() uint64 {
	return st.master.Stats().MaskedFailures.Load()
}

// checkMasked fails when a transaction since the count was taken reported its stop condition in
// place of an earlier failure.
func (st *state) checkMasked(before uint64, what string) error {
	if st.maskedFailures() == before {
		return nil
	}
	return errors.Errorf("%s failed before the stop condition", what)
}

func printRegisters(c *cli.Context, first byte, data []byte) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Register", "Value", "Binary"})
	for i, v := range data {
		t.AppendRow(table.Row{hexByte(first + byte(i)), hexByte(v), fmt.Sprintf("%08b", v)})
	}
	printf(c.App.Writer, "%s", t.Render())
}

// registerAction parses address, register and the trailing operands, runs op and prints the
// register afterwards.
func (st *state) registerAction(
	c *cli.Context,
	operands int,
	op func(m *softi2c.Master, addr, reg byte, args []byte) softi2c.Status,
) error {
	if c.Args().Len() != 2+operands {
		return errors.Errorf("expected %d arguments, got %d", 2+operands, c.Args().Len())
	}
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	reg, err := byteArg(c, 1, "register")
	if err != nil {
		return err
	}
	args, err := byteArgs(c, 2, "operand")
	if err != nil {
		return err
	}
	if _, err := st.openBus(); err != nil {
		return err
	}
	what := fmt.Sprintf("%s on register %s of %s", c.Command.Name, hexByte(reg), hexByte(addr))
	masked := st.maskedFailures()
	if err := op(st.master, addr, reg, args).Err(); err != nil {
		return errors.Wrap(err, what)
	}
	if err := st.checkMasked(masked, what); err != nil {
		return err
	}
	v, status := st.master.ReadRegister(c.Context, addr, reg)
	if err := status.Err(); err != nil {
		return errors.Wrapf(err, "reading back register %s of %s", hexByte(reg), hexByte(addr))
	}
	printf(c.App.Writer, "%s: %s", hexByte(reg), hexByte(v))
	return nil
}

func (st *state) setBitsAction(c *cli.Context) error {
	return st.registerAction(c, 1, func(m *softi2c.Master, addr, reg byte, args []byte) softi2c.Status {
		return m.SetBits(c.Context, addr, reg, args[0])
	})
}

func (st *state) clearBitsAction(c *cli.Context) error {
	return st.registerAction(c, 1, func(m *softi2c.Master, addr, reg byte, args []byte) softi2c.Status {
		return m.ClearBits(c.Context, addr, reg, args[0])
	})
}

func (st *state) maskedSetAction(c *cli.Context) error {
	return st.registerAction(c, 2, func(m *softi2c.Master, addr, reg byte, args []byte) softi2c.Status {
		return m.MaskedSet(c.Context, addr, reg, args[0], args[1])
	})
}

func (st *state) statsAction(c *cli.Context) error {
	bus, err := st.openBus()
	if err != nil {
		return err
	}
	found, err := bus.Scan(c.Context)
	if err != nil {
		return err
	}
	stats := bus.Stats()
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"devices", len(found)},
		{"transactions", stats.Transactions},
		{"start attempts", stats.StartAttempts},
		{"retries", stats.Retries},
		{"nacks", stats.Nacks},
		{"timeouts", stats.Timeouts},
		{"masked failures", stats.MaskedFailures},
	})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}
