package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ironquest/services"
	"ironquest/utils"
)

func newWeeklyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly-reset",
		Short: "Run the weekly reset now, outside the schedule",
		Long: "Zeroes weekly achievements and weekly lifting totals. Takes the same lock as the " +
			"server's scheduler, so it fails fast while a scheduled run is in progress.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			rdb := utils.NewRedis(e.cfg)
			if rdb != nil {
				defer rdb.Close()
			}

			cache := services.NewProgressCache(rdb, e.cfg.CacheTTL, e.log)
			notifier := services.MultiNotifier{
				services.LogNotifier{Log: e.log},
				services.NewRedisPushQueue(rdb),
			}
			job := services.NewWeeklyResetJob(e.db, e.cfg.ResetChunkSize, e.cfg.ResetTimeout, e.log)
			lock := services.NewJobLock(rdb, services.WeeklyResetLockKey, e.cfg.ResetTimeout+time.Minute)
			runner := services.NewWeeklyResetRunner(e.db, job, lock, notifier, cache, e.log)

			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ResetTimeout+time.Minute)
			defer cancel()
			result, err := runner.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "weekly achievements: %d\nentries reset: %d\nusers reset: %d\n",
				result.WeeklyAchievements, result.AchievementsReset, result.UsersReset)
			return nil
		},
	}
}
