package app

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"pricebot/internal/storage"
)

// AddDestination registers a chat for alerts.
func (a *App) AddDestination(ctx context.Context, dest storage.Destination) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	if dest.Name == "" {
		dest.Name = strconv.FormatInt(dest.ID, 10)
	}
	added, err := st.registry.AddDestination(ctx, dest)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("chat %d is already registered", dest.ID)
	}
	a.Logger.Info().Int64("chat_id", dest.ID).Str("chat_name", dest.Name).Msg("destination added")
	return nil
}

// RemoveDestination unregisters a chat.
func (a *App) RemoveDestination(ctx context.Context, id int64) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	removed, err := st.registry.RemoveDestination(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("chat %d is not registered", id)
	}
	a.Logger.Info().Int64("chat_id", id).Msg("destination removed")
	return nil
}

// ListDestinations prints the registered chats.
func (a *App) ListDestinations(ctx context.Context, out io.Writer) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	dests, err := st.registry.Destinations(ctx)
	if err != nil {
		return err
	}
	writeDestinations(out, dests)
	return nil
}

func writeDestinations(out io.Writer, dests []storage.Destination) {
	if len(dests) == 0 {
		fmt.Fprintln(out, "no destinations registered; alerts go to the default chat")
		return
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Chat ID", "Name"})
	for _, d := range dests {
		table.Append([]string{strconv.FormatInt(d.ID, 10), d.Name})
	}
	table.Render()
}
