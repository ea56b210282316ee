package root

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/offline"
	"ironquest/progression"
)

func newOfflineCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Manage a device's offline progression store",
	}
	cmd.PersistentFlags().StringVar(&path, "db", "", "offline store path (defaults to OFFLINE_DB_PATH)")

	pull := &cobra.Command{
		Use:   "pull <user-id>",
		Short: "Seed the offline store with a user's server state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID uint
			if _, err := fmt.Sscan(args[0], &userID); err != nil || userID == 0 {
				return &progression.ValidationError{Field: "user-id", Reason: "must be a positive integer"}
			}

			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			snap, err := loadSnapshot(ctx, e, userID)
			if err != nil {
				return err
			}

			sess, err := offline.Open(storePath(e, path), offline.WithLogger(e.log))
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Seed(ctx, *snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pulled user %d into %s (%d entries, %d personal bests)\n",
				userID, sess.Path(), len(snap.Entries), len(snap.PersonalBest))
			return nil
		},
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "Print unsynced journal entries as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				e, cleanup, err := openEnv()
				if err != nil {
					return err
				}
				path = e.cfg.OfflineDBPath
				cleanup()
			}
			sess, err := offline.Open(path)
			if err != nil {
				return err
			}
			defer sess.Close()

			events, err := sess.PendingEvents(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}

	ack := &cobra.Command{
		Use:   "ack <event-id>...",
		Short: "Mark journal entries as synced",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				e, cleanup, err := openEnv()
				if err != nil {
					return err
				}
				path = e.cfg.OfflineDBPath
				cleanup()
			}
			sess, err := offline.Open(path)
			if err != nil {
				return err
			}
			defer sess.Close()

			n, err := sess.MarkSynced(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d of %d entries synced\n", n, len(args))
			return nil
		},
	}

	cmd.AddCommand(pull, pending, ack)
	return cmd
}

func storePath(e *env, flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.OfflineDBPath
}

// loadSnapshot reads what a device needs to keep progressing offline.
func loadSnapshot(ctx context.Context, e *env, userID uint) (*offline.Snapshot, error) {
	db := e.db.WithContext(ctx)
	snap := &offline.Snapshot{}
	if err := db.First(&snap.User, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}
	if err := db.Order("id").Find(&snap.Catalog).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Find(&snap.Entries).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Find(&snap.PersonalBest).Error; err != nil {
		return nil, err
	}
	// Catalog rows are written separately; entries carry ids only.
	for i := range snap.Entries {
		snap.Entries[i].Achievement = models.Achievement{}
	}
	return snap, nil
}
