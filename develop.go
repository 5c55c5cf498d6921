package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scene-prompt-server/modules/common/apperr"
	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/composer"
	"scene-prompt-server/modules/scene"
)

var (
	variantFlag string
	ideaFlag    string
	imageFlag   string
	sceneFlag   string
)

var developCmd = &cobra.Command{
	Use:   "develop",
	Short: "Fill scene fields from an idea or an image",
	Long: `Fill the scene fields of a variant from a short idea or a reference image.

Examples:
  scene-prompt-server develop --variant video --idea "a samurai in the rain"
  scene-prompt-server develop --variant image --image ./ref.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := scene.ParseVariant(variantFlag)
		if err != nil {
			return err
		}
		if (ideaFlag == "") == (imageFlag == "") {
			return errors.New("exactly one of --idea or --image is required")
		}

		a, err := newApp(cmd.Context(), cliLogs)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		ws := composer.NewWorkspace("cli", v, composer.WorkspaceDeps{Service: a.service, Logger: a.logger})
		source := composer.SourceText
		if imageFlag != "" {
			payload, err := media.NewEncoder(a.cfg.MediaMaxBytes).EncodeFile(imageFlag)
			if err != nil {
				return cliError(err, apperr.UserMessage)
			}
			ws.AttachImage(imageFlag, payload)
			source = composer.SourceImage
		} else {
			ws.SetIdea(ideaFlag)
		}

		snap, err := ws.Develop(cmd.Context(), source)
		if err != nil {
			return cliError(err, apperr.UserMessage)
		}

		// stdout 은 generate --scene 입력으로 바로 쓸 수 있는 JSON 만
		if source == composer.SourceImage {
			fmt.Fprintf(cmd.ErrOrStderr(), "Ide Prompt: %s\n", snap.Idea)
		}
		fmt.Fprintln(cmd.OutOrStdout(), snap.Scene.Pretty())
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Produce the five final prompts from a scene file",
	Long: `Produce the five final prompts from a scene JSON file
(as printed by "develop").

Example:
  scene-prompt-server generate --variant video --scene scene.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := scene.ParseVariant(variantFlag)
		if err != nil {
			return err
		}
		if sceneFlag == "" {
			return errors.New("--scene is required")
		}

		data, err := os.ReadFile(sceneFlag)
		if err != nil {
			return fmt.Errorf("failed to read scene file: %w", err)
		}
		var fields map[string]string
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("scene file must be a JSON object of strings: %w", err)
		}

		a, err := newApp(cmd.Context(), cliLogs)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		ws := composer.NewWorkspace("cli", v, composer.WorkspaceDeps{Service: a.service, Logger: a.logger})
		if _, err := ws.SetFields(fields); err != nil {
			return cliError(err, apperr.UserMessage)
		}

		snap, err := ws.Generate(cmd.Context())
		if err != nil {
			return cliError(err, apperr.FinalMessage)
		}

		out := cmd.OutOrStdout()
		set := snap.Artifacts
		for _, section := range []struct{ title, body string }{
			{"Prompt (Bahasa Indonesia)", set.Source},
			{"Prompt (English)", set.English},
			{"Structured Prompt (English)", set.Listing},
			{"JSON Prompt (English)", set.JSON},
			{"Story Prompt (English)", set.Story},
		} {
			fmt.Fprintf(out, "=== %s ===\n%s\n\n", section.title, strings.TrimSpace(section.body))
		}
		return nil
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the scene fields of a variant",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := scene.ParseVariant(variantFlag)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tLABEL\tDEFAULT\tALLOWED")
		for _, f := range scene.SchemaFor(v).Fields {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Label, f.Default, strings.Join(f.Enum, ", "))
		}
		return tw.Flush()
	},
}

// cliError - 사용자 메시지 + 원인
func cliError(err error, message func(error) string) error {
	return fmt.Errorf("%s (%w)", message(err), err)
}

func init() {
	for _, c := range []*cobra.Command{developCmd, generateCmd, fieldsCmd} {
		c.Flags().StringVar(&variantFlag, "variant", "video", "scene variant: video or image")
	}
	developCmd.Flags().StringVar(&ideaFlag, "idea", "", "short idea text")
	developCmd.Flags().StringVar(&imageFlag, "image", "", "reference image path")
	generateCmd.Flags().StringVar(&sceneFlag, "scene", "", "scene JSON file")
}
