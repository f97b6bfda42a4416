package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ryanuber/columnize"
)

// SessionList prints every stored session as a table.
func SessionList(ctx context.Context, opts StoreOptions, w io.Writer) error {
	store, _, closeStore, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	sort.Strings(ids)

	rows := []string{"SESSION | MACHINE | STATE | COUNTDOWN | UPDATED"}
	for _, id := range ids {
		snap, err := store.Load(ctx, id)
		if err != nil {
			rows = append(rows, fmt.Sprintf("%s | - | - | - | (unreadable: %v)", id, err))
			continue
		}
		rows = append(rows, fmt.Sprintf("%s | %s | %s | %s | %s",
			snap.SessionID, snap.Machine, snap.State,
			snap.Countdown.String(),
			snap.UpdatedAt.Format("2006-01-02 15:04:05"),
		))
	}
	fmt.Fprintln(w, columnize.SimpleFormat(rows))
	return nil
}

// SessionShow prints one session snapshot as indented JSON.
func SessionShow(ctx context.Context, opts StoreOptions, sessionID string, w io.Writer) error {
	store, _, closeStore, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	snap, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// SessionReset removes one session snapshot. Deleting a session that
// does not exist is not an error.
func SessionReset(ctx context.Context, opts StoreOptions, sessionID string) error {
	store, _, closeStore, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session %q: %w", sessionID, err)
	}
	return nil
}
