package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nexiro/internal/bootstrap"
	"nexiro/internal/domain/jsoncfg"
	"nexiro/internal/pipeline"
)

const requestExample = `Example request file (request.yaml):
  source:
    path: nasi-goreng.jpg
  style:
    type: TEXT
    description: rustic warung table, morning light
  options:
    tool_type: FOOD
    aspect_ratio: "4:5"
    quality: 2K
    camera_angle: FORTY_FIVE
    excluded_props: [spoon]`

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the instruction document for a request file",
	Long: `Print the instruction document the image model would receive.

No model is called and no credits are charged. Subject details come only
from options.detected_subject_details and TEXT styles are used verbatim.

` + requestExample,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := decodeRequestFile()
		if err != nil {
			return err
		}
		preview, err := pipeline.Compile(pipeline.Request{Source: req.Source, Style: req.Style, Options: req.Options})
		if err != nil {
			return err
		}
		if outputFile != "" {
			return saveToFile(outputFile, []byte(preview.Instruction))
		}
		return printJSON(cmd, preview)
	},
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Run a request file through the full pipeline",
	Long: `Analyze, resolve, charge and generate exactly like POST /v1/enhance.
State transitions are printed to stderr; the image is written to -o.

` + requestExample,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := requireEmail()
		if err != nil {
			return err
		}
		if outputFile == "" {
			return fmt.Errorf("output file is required, use -o flag")
		}
		req, err := decodeRequestFile()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc, err := bootstrap.Build(ctx, cfg, newLogger())
		if err != nil {
			return err
		}
		defer svc.Close()

		account, err := svc.Pipeline.Account(ctx, email)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		res := svc.Pipeline.Run(ctx, pipeline.Request{
			Identity: email,
			Source:   req.Source,
			Style:    req.Style,
			Options:  req.Options,
			Account:  account,
		}, func(e pipeline.Event) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%-16s credits=%d charged=%t\n", e.State, e.Account.Credits, e.Charged)
		})
		if res.State != pipeline.StateSuccess {
			return errors.New(res.Message())
		}
		if err := saveToFile(outputFile, res.Image.Data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %s); %d credits left\n",
			outputFile, len(res.Image.Data), res.Image.ContentType(), res.Account.Credits)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{compileCmd, enhanceCmd} {
		c.Flags().StringVarP(&inputFile, "file", "f", "", "request file (YAML or JSON)")
		c.Flags().StringVarP(&outputFile, "output", "o", "", "output file")
	}
	enhanceCmd.Flags().StringVar(&emailFlag, "email", "", "account to charge")
}

func decodeRequestFile() (jsoncfg.EnhanceRequest, error) {
	if err := requireInputFile(); err != nil {
		return jsoncfg.EnhanceRequest{}, err
	}
	payload, err := loadRequest(inputFile)
	if err != nil {
		return jsoncfg.EnhanceRequest{}, err
	}
	payload.Normalize()
	return payload.Decode()
}
