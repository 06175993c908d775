// conllsplit: 将 CONLL 风格语料可复现地切分为 train/dev/test
// （或 k 折交叉验证）数据集。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "conllsplit/internal/config"
	"conllsplit/internal/diag"
	"conllsplit/internal/split"
	"conllsplit/pkg/registry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run 装配并执行根命令，返回进程退出码
// （0 成功；2 参数错误；1 其余运行错误）。
func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "conllsplit: %v\n", err)
		return diag.ExitCode(diag.Classify(err))
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		flagConfig          string
		flagOutputFolder    string
		flagTest            float64
		flagDev             float64
		flagSeed            int64
		flagOutputFilename  string
		flagCrossValidation bool
		flagOmitMetadata    bool
		flagLogLevel        string
	)

	cmd := &cobra.Command{
		Use:   "conllsplit SOURCE",
		Short: "Reproducibly split a CONLL corpus into train, dev and test sets",
		Long: "conllsplit partitions a CONLL-style corpus (single file or folder) into\n" +
			"train/dev/test sets, or k-fold cross-validation sets, using a seeded\n" +
			"permutation so identical parameters reproduce identical splits.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgpkg.Defaults()

			// YAML 配置（可选；缺省读取工作目录下 conllsplit.yaml，若存在）。
			path := flagConfig
			if path == "" {
				if _, err := os.Stat("conllsplit.yaml"); err == nil {
					path = "conllsplit.yaml"
				}
			}
			if path != "" {
				fileCfg, err := cfgpkg.Load(path)
				if err != nil {
					return err
				}
				cfg = cfgpkg.Merge(cfg, fileCfg)
			}

			// CLI 覆盖：仅显式给出的旗标参与合并（Changed），
			// 使显式 0 值（如 --seed 0）同样生效。
			var over cfgpkg.Config
			fl := cmd.Flags()
			if fl.Changed("output-folder") {
				over.OutputFolder = flagOutputFolder
			}
			if fl.Changed("test") {
				over.Test = &flagTest
			}
			if fl.Changed("dev") {
				over.Dev = &flagDev
			}
			if fl.Changed("seed") {
				over.Seed = &flagSeed
			}
			if fl.Changed("output-filename") {
				over.OutputFilename = flagOutputFilename
			}
			if fl.Changed("cross-validation") {
				over.CrossValidation = &flagCrossValidation
			}
			if fl.Changed("omit-metadata") {
				over.OmitMetadata = &flagOmitMetadata
			}
			if fl.Changed("log-level") {
				over.Logging.Level = flagLogLevel
			}
			cfg = cfgpkg.Merge(cfg, over)

			if err := cfgpkg.Validate(cfg); err != nil {
				return err
			}

			logger := diag.NewLogger(cfg.Logging.Level)
			defer func() { _ = logger.Sync() }()

			source := args[0]
			files, err := split.ResolveSource(source)
			if err != nil {
				return err
			}
			it, err := registry.Build(cfg.Iterator.Name, files, cfg.Iterator.Options)
			if err != nil {
				return err
			}

			name, ext := split.DeriveOutputName(source, cfg.OutputFilename)
			set := split.Settings{
				Test:         *cfg.Test,
				Dev:          *cfg.Dev,
				Seed:         cfg.Seed,
				OmitMetadata: boolOf(cfg.OmitMetadata),
				OutputFolder: cfg.OutputFolder,
				OutputName:   name,
				OutputExt:    ext,
			}
			set.CrossValidation = boolOf(cfg.CrossValidation)

			logger.Info("split starting",
				zap.String("source", source),
				zap.Int("files", len(files)),
				zap.String("output_folder", set.OutputFolder))
			return split.Run(context.Background(), it, set, logger)
		},
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "path to YAML config file (default ./conllsplit.yaml if present)")
	cmd.Flags().StringVarP(&flagOutputFolder, "output-folder", "o", ".", "path to the output folder")
	cmd.Flags().Float64VarP(&flagTest, "test", "t", 0.3, "test set size as a proportion")
	cmd.Flags().Float64VarP(&flagDev, "dev", "d", 0.0, "dev set size as a proportion")
	cmd.Flags().Int64VarP(&flagSeed, "seed", "s", 0, "random seed (default: derived from sample count)")
	cmd.Flags().StringVarP(&flagOutputFilename, "output-filename", "f", "", "filename for output files (default: source base name)")
	cmd.Flags().BoolVar(&flagCrossValidation, "cross-validation", false, "create k-fold cross-validation datasets")
	cmd.Flags().BoolVar(&flagOmitMetadata, "omit-metadata", false, "do not write document/paragraph metadata to output files")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	return cmd
}

func boolOf(p *bool) bool { return p != nil && *p }
