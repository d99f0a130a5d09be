package settings

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/corraldev/corral/cmd/corral/cmdcore"
)

// Handler implements Actions against a running daemon.
type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Get(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	value, err := d.Manager.GetSetting(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func (h Handler) Set(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	return d.Manager.SetSetting(ctx, args[0], args[1])
}

func (h Handler) Keys(cmd *cobra.Command, _ []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	keys, err := d.Manager.SettingKeys(ctx)
	if err != nil {
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func (h Handler) Authenticate(cmd *cobra.Command, args []string) error {
	ctx, d, err := h.Init(cmd)
	if err != nil {
		return err
	}
	if err := d.Manager.Authenticate(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}
