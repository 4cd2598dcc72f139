package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/KaramelBytes/docfx-topics/internal/utils"
	"github.com/spf13/cobra"
)

var (
	topicsPrefix string
	topicsJSON   bool

	topicProject string
	topicJSON    bool
)

var topicsCmd = &cobra.Command{
	Use:   "topics [project]",
	Short: "List the topics defined by a DocFX project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile, err := resolveProjectFile(firstArg(args))
		if err != nil {
			return err
		}
		tc, err := openCache(projectFile)
		if err != nil {
			return err
		}
		defer tc.Close()
		if err := populate(cmd.Context(), cmd, tc); err != nil {
			return err
		}

		topics, err := tc.Topics(topicsPrefix)
		if err != nil {
			return err
		}
		sort.Slice(topics, func(i, j int) bool { return topics[i].UID < topics[j].UID })

		out := cmd.OutOrStdout()
		if topicsJSON {
			return writeJSON(out, topics)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "UID\tTYPE\tSOURCE")
		for _, t := range topics {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.UID, t.DetailedType, t.SourceFile)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d topics\n", len(topics))
		return nil
	},
}

var topicCmd = &cobra.Command{
	Use:   "topic <uid>",
	Short: "Show the metadata of one topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile, err := resolveProjectFile(topicProject)
		if err != nil {
			return err
		}
		tc, err := openCache(projectFile)
		if err != nil {
			return err
		}
		defer tc.Close()
		if err := populate(cmd.Context(), cmd, tc); err != nil {
			return err
		}

		t, err := tc.Topic(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if topicJSON {
			return writeJSON(out, t)
		}
		printTopic(out, t)
		return nil
	},
}

func printTopic(w io.Writer, t topic.Metadata) {
	fmt.Fprintf(w, "uid:          %s\n", t.UID)
	fmt.Fprintf(w, "type:         %s\n", t.Type)
	fmt.Fprintf(w, "detailedType: %s\n", t.DetailedType)
	fmt.Fprintf(w, "name:         %s\n", t.Name)
	fmt.Fprintf(w, "title:        %s\n", t.Title)
	if t.MemberType != "" {
		fmt.Fprintf(w, "memberType:   %s\n", t.MemberType)
	}
	fmt.Fprintf(w, "sourceFile:   %s\n", t.SourceFile)
}

func writeJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.Flags().StringVar(&topicsPrefix, "prefix", "", "only list topics whose UID starts with this prefix")
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "print topics as JSON")

	rootCmd.AddCommand(topicCmd)
	topicCmd.Flags().StringVarP(&topicProject, "project", "p", "", "docfx.json or project directory (default: nearest docfx.json)")
	topicCmd.Flags().BoolVar(&topicJSON, "json", false, "print the topic as JSON")
}
