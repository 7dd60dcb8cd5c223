// -- cmd/run.go --
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// ErrNoGoal is returned when neither --goal nor stdin provided a goal.
var ErrNoGoal = errors.New("no goal given")

// Constructors for the external collaborators, replaced in tests.
var (
	newTransport = func(cfg config.DeviceConfig, logger *zap.Logger) device.Transport {
		return device.NewADB(cfg, logger)
	}
	newLLMClient = llmclient.NewClient
)

func runAgent(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return fmt.Errorf("%w: set GOOGLE_API_KEY or ANTHROPIC_API_KEY in the environment or .env", err)
	}

	goal, _ := cmd.Flags().GetString("goal")
	if strings.TrimSpace(goal) == "" {
		if goal, err = readGoal(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	loop, err := buildLoop(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := loop.Run(ctx, strings.TrimSpace(goal))
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), result)
	return nil
}

// readGoal prompts for and reads a single line.
func readGoal(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your goal: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read goal: %w", err)
	}
	goal := strings.TrimSpace(line)
	if goal == "" {
		return "", ErrNoGoal
	}
	return goal, nil
}

// buildLoop wires transport, observer, oracle and executor from configuration.
func buildLoop(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*agent.Loop, error) {
	deviceCfg := cfg.Device()
	agentCfg := cfg.Agent()

	transport := newTransport(deviceCfg, logger)
	observer, err := screen.NewObserver(transport, deviceCfg, agentCfg.MaxElements, logger)
	if err != nil {
		return nil, err
	}

	client, err := newLLMClient(ctx, agentCfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	oracle := agent.NewOracle(client, llmclient.GenerationOptions{
		Temperature: agentCfg.LLM.Temperature,
		MaxTokens:   agentCfg.LLM.MaxTokens,
	}, logger)

	executor := agent.NewExecutor(transport, agentCfg.WaitDuration, nil, logger)
	return agent.NewLoop(observer, oracle, executor, agentCfg, logger), nil
}

func printSummary(w io.Writer, r *agent.RunResult) {
	switch r.Reason {
	case agent.GoalAchieved:
		fmt.Fprintf(w, "Goal achieved after %d step(s): %s\n", r.StepsRun, r.FinalMessage)
	case agent.BudgetExhausted:
		fmt.Fprintf(w, "Step budget exhausted after %d step(s); goal not confirmed.\n", r.StepsRun)
	case agent.Cancelled:
		fmt.Fprintf(w, "Run cancelled after %d step(s).\n", r.StepsRun)
	}
	if r.FailedSteps > 0 {
		fmt.Fprintf(w, "%d step(s) failed; see the log for details.\n", r.FailedSteps)
	}
	fmt.Fprintf(w, "Run ID: %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
}
