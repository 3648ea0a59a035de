package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"laview-dl/internal/isapi"
	"laview-dl/internal/registry"
)

// rebootSettleDelay is how long a device typically keeps its HTTP port open
// after accepting a reboot request.
const rebootSettleDelay = 30 * time.Second

func (a *App) newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage stored device profiles",
	}
	cmd.AddCommand(a.newDeviceAddCmd())
	cmd.AddCommand(a.newDeviceListCmd())
	cmd.AddCommand(a.newDeviceRemoveCmd())
	cmd.AddCommand(a.newDeviceRebootCmd())
	return cmd
}

func (a *App) newDeviceAddCmd() *cobra.Command {
	var (
		dev       registry.Device
		timeout   time.Duration
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "add <name> <address>",
		Short: "Store a device profile",
		Example: `  laview-dl device add office-nvr 10.145.17.202 --channel 2
  laview-dl device add home 192.168.1.64 --username admin --password qwert123`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			dev.Address = args[1]
			if timeout > 0 {
				dev.TimeoutSeconds = int(timeout / time.Second)
			}
			if err := reg.Add(args[0], dev, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "device %q saved\n", args[0])
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&dev.Channel, "channel", "c", 1, "camera channel")
	flags.StringVarP(&dev.Username, "username", "u", "", "username (omit to fall back to the environment)")
	flags.StringVarP(&dev.Password, "password", "p", "", "password (stored in plaintext; omit to fall back to the environment)")
	flags.DurationVar(&timeout, "timeout", 0, "per-request timeout")
	flags.BoolVar(&overwrite, "overwrite", false, "replace an existing profile with the same name")
	return cmd
}

func (a *App) newDeviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored device profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			entries, err := reg.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "no devices configured")
				return nil
			}
			for _, e := range entries {
				user := e.Username
				if user == "" {
					user = "(from environment)"
				}
				fmt.Fprintf(a.out, "%s:\n  address: %s\n  channel: %d\n  timeout: %s\n  username: %s\n",
					e.Name, e.Address, e.Channel, e.Timeout(), user)
			}
			return nil
		},
	}
}

func (a *App) newDeviceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a stored device profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "device %q removed\n", args[0])
			return nil
		},
	}
}

func (a *App) newDeviceRebootCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "reboot <name|address>",
		Short: "Reboot a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := a.resolveTarget(args[0])
			if err != nil {
				return err
			}
			creds := isapi.Credentials{Username: dev.Username, Password: dev.Password}
			if creds.Username == "" {
				creds.Username = a.settings.Username
			}
			if creds.Password == "" {
				creds.Password = a.settings.Password
			}
			client := isapi.New(dev.Address, creds, isapi.Options{
				Timeout: a.settings.Timeout,
				Logger:  a.log,
			})
			ctx := cmd.Context()
			if err := client.Negotiate(ctx); err != nil {
				return err
			}
			if err := client.Reboot(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reboot requested for %s\n", dev.Address)

			if wait <= 0 {
				return nil
			}
			a.log.Info("waiting for device to come back", "device", dev.Address, "budget", wait)
			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			// The device keeps accepting connections for a moment before it
			// actually goes down; let it drop off before polling.
			select {
			case <-time.After(rebootSettleDelay):
			case <-waitCtx.Done():
				return fmt.Errorf("device %s did not come back within %s", dev.Address, wait)
			}
			if !client.WaitUntilUp(waitCtx) {
				return fmt.Errorf("device %s did not come back within %s", dev.Address, wait)
			}
			fmt.Fprintf(a.out, "device %s is back up\n", dev.Address)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the device to come back (0 = don't wait)")
	return cmd
}
