package cmd

import "github.com/spf13/cobra"

func Execute() error {
	root, cleanup := newRootCmd()
	defer cleanup()

	return root.Execute()
}

func newRootCmd() (*cobra.Command, func()) {
	rootCmd := &cobra.Command{
		Use:           "schoolsync",
		Short:         "Keep school-life data fresh in the background",
		Long:          "schoolsync stores school-service accounts, refreshes their news, homework, grades, lessons, attendance and evaluations on a schedule, and notifies you about new items.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, func() {}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newAuthCmd(app),
		newLoginCmd(app),
		newFlagsCmd(app),
		newBackgroundCmd(app),
		newStatusCmd(app),
		newDaemonCmd(app),
	)

	return rootCmd, app.close
}
