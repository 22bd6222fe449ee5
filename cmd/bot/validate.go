package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValidateCommand() *cobra.Command {
	paths := contentPaths{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Проверить файлы квеста: ветка start и ссылки вариантов ответа",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, paths)
		},
	}
	cmd.Flags().StringVar(&paths.ContentDir, "content-dir", "configs/quest", "каталог с файлами веток")
	cmd.Flags().StringVar(&paths.MessagesFile, "messages", "configs/messages.yml", "файл сообщений")
	cmd.Flags().StringVar(&paths.AchievementsFile, "achievements", "configs/achievements.yml", "файл достижений")
	return cmd
}

func runValidate(cmd *cobra.Command, paths contentPaths) error {
	logger := zap.NewNop()
	loaded, err := loadContent(paths, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := loaded.Branches.Validate()
	fmt.Fprintf(out, "Веток: %d, достижений: %d\n", loaded.Branches.Len(), len(loaded.Catalog.All()))
	if report.MissingStart {
		fmt.Fprintln(out, "Нет ветки 'start'")
	}
	for _, link := range report.DanglingLinks {
		fmt.Fprintf(out, "%s: ветка '%s', вариант %d ведет в несуществующую ветку '%s'\n",
			link.Source, link.BranchID, link.Option, link.NextBranchID)
	}
	if !report.OK() {
		return report.Err()
	}
	fmt.Fprintln(out, "OK")
	return nil
}
