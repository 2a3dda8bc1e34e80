package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/promptflow/agent"
	"github.com/mohitkumar/promptflow/analytics"
	"github.com/mohitkumar/promptflow/config"
	"github.com/mohitkumar/promptflow/container"
	"github.com/mohitkumar/promptflow/evaluation"
	"github.com/mohitkumar/promptflow/logger"
	"github.com/mohitkumar/promptflow/metadata"
	"github.com/mohitkumar/promptflow/model"
	"github.com/mohitkumar/promptflow/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	defaults := config.Default()
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "Path to config file.")
	flags.Int("http-port", defaults.HttpPort, "http port for rest endpoints")
	flags.String("storage-impl", string(defaults.StorageType), "implementation of project storage (file, redis, memory)")
	flags.String("data-dir", defaults.FileConfig.DataDir, "directory of the file storage")
	flags.String("redis-addr", strings.Join(defaults.RedisConfig.Addrs, ","), "comma separated list of redis host:port")
	flags.String("namespace", defaults.RedisConfig.Namespace, "namespace used in storage")
	flags.String("redis-password", "", "redis password")
	flags.Duration("cache-ttl", defaults.CacheTTL, "project cache ttl, 0 disables the cache")
	flags.Int("step-concurrency", defaults.EngineConfig.StepConcurrency, "max concurrent calls within a step")
	flags.Duration("function-timeout", defaults.EngineConfig.FunctionTimeout, "max run time of a function call")
	flags.Bool("fail-fast", false, "stop a workflow after the first step with a failed call")
	flags.String("schema-file", "", "yaml or json file with additional schemas")
	flags.String("llm-base-url", defaults.LLMConfig.BaseURL, "base url of the openai compatible api")
	flags.String("llm-api-key", "", "api key of the model provider")
	flags.Duration("llm-timeout", defaults.LLMConfig.Timeout, "timeout of one model request")
	flags.Int("llm-max-retries", defaults.LLMConfig.MaxRetries, "retries of a model request failing with a network error, 429 or 5xx")
	flags.Duration("llm-retry-interval", defaults.LLMConfig.RetryInterval, "first backoff delay between retried model requests")
	flags.String("default-model-provider", string(defaults.LLMConfig.DefaultProvider), "provider for models without a specific route (openai, echo)")
	flags.String("log-level", defaults.LoggerConfig.Level, "log level")
	flags.String("log-format", defaults.LoggerConfig.Format, "log format (json, console)")
	flags.String("log-file", "", "additional log output file")
	flags.String("analytics-file", "", "file receiving one json line per call outcome")
	flags.Duration("metrics-period", 0, "metrics reporting period, 0 disables reporting")
	return viper.BindPFlags(flags)
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}
	viper.SetEnvPrefix("PROMPTFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.Config = config.Default()
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.FileConfig.DataDir = viper.GetString("data-dir")
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.CacheTTL = viper.GetDuration("cache-ttl")
	c.cfg.EngineConfig.StepConcurrency = viper.GetInt("step-concurrency")
	c.cfg.EngineConfig.FunctionTimeout = viper.GetDuration("function-timeout")
	c.cfg.EngineConfig.FailFast = viper.GetBool("fail-fast")
	c.cfg.SchemaFile = viper.GetString("schema-file")
	c.cfg.LLMConfig.BaseURL = viper.GetString("llm-base-url")
	c.cfg.LLMConfig.APIKey = viper.GetString("llm-api-key")
	c.cfg.LLMConfig.Timeout = viper.GetDuration("llm-timeout")
	c.cfg.LLMConfig.MaxRetries = viper.GetInt("llm-max-retries")
	c.cfg.LLMConfig.RetryInterval = viper.GetDuration("llm-retry-interval")
	c.cfg.LLMConfig.DefaultProvider = config.ProviderType(viper.GetString("default-model-provider"))
	c.cfg.LoggerConfig.Level = viper.GetString("log-level")
	c.cfg.LoggerConfig.Format = viper.GetString("log-format")
	c.cfg.LoggerConfig.File = viper.GetString("log-file")
	if file := viper.GetString("analytics-file"); file != "" {
		c.cfg.AnalyticsConfig.CollectorType = analytics.LOG_FILE_DATA_COLLECTOR
		c.cfg.AnalyticsConfig.FileName = file
	}
	c.cfg.MetricsPeriod = viper.GetDuration("metrics-period")
	return logger.Init(c.cfg.LoggerConfig)
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	err = agent.Start()
	if err != nil {
		return err
	}
	select {
	case <-cmd.Context().Done():
	case <-agent.Done():
	}
	return agent.Shutdown()
}

func (c *cli) container() (*container.DIContainer, error) {
	if err := analytics.InitDataCollector(c.cfg.AnalyticsConfig); err != nil {
		return nil, err
	}
	d := container.NewDiContainer()
	if err := d.Init(c.cfg.Config); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	projectFile, _ := cmd.Flags().GetString("project-file")
	projectId, _ := cmd.Flags().GetString("project")
	workflowId, _ := cmd.Flags().GetString("workflow")
	pairs, _ := cmd.Flags().GetStringArray("var")

	variables, err := parseVariables(pairs)
	if err != nil {
		return err
	}
	if projectFile != "" {
		c.cfg.StorageType = config.STORAGE_TYPE_INMEM
	}
	d, err := c.container()
	if err != nil {
		return err
	}
	defer d.Close()
	defer analytics.Close()

	ctx := cmd.Context()
	var project *model.Project
	if projectFile != "" {
		project, err = metadata.LoadProjectFile(projectFile)
		if err == nil {
			err = metadata.ValidateProject(*project, d.GetFunctionRunner())
		}
	} else {
		project, err = d.GetProjectStore().LoadProject(ctx, projectId)
	}
	if err != nil {
		return err
	}
	wf, ok := project.GetWorkflow(workflowId)
	if !ok {
		if workflowId != "" || len(project.Workflows) == 0 {
			return fmt.Errorf("%w: %s", metadata.ErrWorkflowNotFound, workflowId)
		}
		wf = &project.Workflows[0]
	}
	reports, runErr := d.GetEngine().Run(ctx, *wf, variables)
	if err := printJSON(cmd, reports); err != nil {
		return err
	}
	return runErr
}

func (c *cli) eval(cmd *cobra.Command, args []string) error {
	projectId, _ := cmd.Flags().GetString("project")
	evaluationId, _ := cmd.Flags().GetString("evaluation")
	workflowIds, _ := cmd.Flags().GetStringSlice("workflow")

	d, err := c.container()
	if err != nil {
		return err
	}
	defer d.Close()
	defer analytics.Close()

	results, err := d.GetEvaluationRunner().Run(cmd.Context(), evaluation.RunRequest{
		ProjectId:    projectId,
		EvaluationId: evaluationId,
		WorkflowIds:  workflowIds,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, results)
}

func (c *cli) schemas(cmd *cobra.Command, args []string) error {
	d, err := c.container()
	if err != nil {
		return err
	}
	defer d.Close()
	registry := d.GetSchemaRegistry()
	if len(args) == 0 {
		for _, name := range registry.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}
	desc, err := registry.DescribeJSON(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), desc)
	return nil
}

// parseVariables turns repeated name=value flags into run variables.
func parseVariables(pairs []string) (map[string]any, error) {
	variables := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", pair)
		}
		variables[name] = value
	}
	return variables, nil
}

func printJSON[T any](cmd *cobra.Command, value T) error {
	data, err := util.NewIndentedJsonEncoderDecoder[T]("  ").Encode(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func newRootCmd() *cobra.Command {
	cli := &cli{}

	root := &cobra.Command{
		Use:               "promptflow",
		Short:             "run and evaluate llm workflows",
		PersistentPreRunE: cli.setupConfig,
		SilenceUsage:      true,
	}
	if err := setupFlags(root); err != nil {
		log.Fatal(err)
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the http server",
		RunE:  cli.serve,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one workflow and print the step reports",
		RunE:  cli.run,
	}
	runCmd.Flags().String("project-file", "", "json or yaml project file")
	runCmd.Flags().String("project", "", "id of a stored project, used without --project-file")
	runCmd.Flags().String("workflow", "", "workflow id, defaults to the first workflow")
	runCmd.Flags().StringArray("var", nil, "run variable as name=value, repeatable")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "run an evaluation against the configured store",
		RunE:  cli.eval,
	}
	evalCmd.Flags().String("project", "", "project id")
	evalCmd.Flags().String("evaluation", "", "evaluation id")
	evalCmd.Flags().StringSlice("workflow", nil, "restrict the evaluation to these workflow ids")
	_ = evalCmd.MarkFlagRequired("project")
	_ = evalCmd.MarkFlagRequired("evaluation")

	schemasCmd := &cobra.Command{
		Use:   "schemas [name]",
		Short: "list schemas or describe one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  cli.schemas,
	}

	root.AddCommand(serveCmd, runCmd, evalCmd, schemasCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
