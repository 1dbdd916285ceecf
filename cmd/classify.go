package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oncallops/mailtriage/internal/classify"
	"github.com/oncallops/mailtriage/internal/config"
	"github.com/oncallops/mailtriage/internal/mailbox"
	"github.com/oncallops/mailtriage/internal/parse"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message.eml>",
	Short: "Normalize and classify a raw message file (no side effects)",
	Long: `Runs the normalizer and the keyword rule engine against a raw RFC822
message file and prints the decision, without sending mail, creating
tickets, or touching the dedup store. Useful for testing rule changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	table, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		return fmt.Errorf("loading rule table: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading message file: %w", err)
	}

	normalizer := parse.NewNormalizer(cfg.SMTP.Sender, nil)
	inc, err := normalizer.Normalize(mailbox.RawMessage{
		DeliveryID: "file-" + filepath.Base(args[0]),
		Data:       data,
	})
	if err != nil {
		return err
	}

	engine := classify.NewEngine(table, nil)
	inc.Priority = engine.ClassifyPriority(inc)
	inc.AssignedTeam, inc.AssignedTeamEmail = engine.AssignTeam(inc)

	fmt.Printf("Incident ID: %s\n", inc.ID)
	fmt.Printf("Subject:     %s\n", inc.Subject)
	fmt.Printf("Priority:    %s\n", inc.Priority)
	fmt.Printf("Team:        %s <%s>\n", inc.AssignedTeam, inc.AssignedTeamEmail)
	fmt.Printf("Escalates:   %t\n", inc.Priority == table.Top())
	fmt.Println("Notes:")
	for _, note := range inc.ProcessingNotes {
		fmt.Printf("  - %s\n", note)
	}
	return nil
}
