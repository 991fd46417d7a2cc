// Command lotteryctl inspects odds and runs lotteries against a local bolt file without the API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v1"

	"github.com/ArowuTest/draft-lottery-backend/internal/logger"
	"github.com/ArowuTest/draft-lottery-backend/internal/lottery"
	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories/boltdb"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
)

var operator = models.Actor{ID: "lotteryctl", DisplayName: "lotteryctl", Role: models.RoleAdmin}

var (
	dbFlag    = cli.StringFlag{Name: "db", Value: "draft-lottery.db", Usage: "bolt database file"}
	idFlag    = cli.StringFlag{Name: "id", Usage: "lottery session id"}
	teamsFlag = cli.IntFlag{Name: "teams", Value: lottery.MaxTeams, Usage: "number of teams (1-14)"}
	seedFlag  = cli.Int64Flag{Name: "seed", Usage: "seed for a reproducible draw; 0 uses crypto/rand"}
)

func main() {
	app := cli.NewApp()
	app.Name = "lotteryctl"
	app.Usage = "draft lottery odds, simulations and exports"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
	}
	app.Before = func(c *cli.Context) error {
		return logger.Init("development", c.GlobalString("log-level"))
	}
	app.After = func(*cli.Context) error {
		logger.Sync()
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "odds",
			Usage:  "print the odds table and combination ranges for a team count",
			Flags:  []cli.Flag{teamsFlag, seedFlag, cli.IntFlag{Name: "runs", Usage: "estimate first-pick odds over this many simulated draws"}},
			Action: oddsCmd,
		},
		{
			Name:  "simulate",
			Usage: "run a complete lottery and store it in the bolt file",
			Flags: []cli.Flag{
				dbFlag, teamsFlag, seedFlag,
				cli.StringFlag{Name: "name", Value: "Simulated lottery", Usage: "session name"},
			},
			Action: simulateCmd,
		},
		{
			Name:   "show",
			Usage:  "print a stored lottery session",
			Flags:  []cli.Flag{dbFlag, idFlag},
			Action: showCmd,
		},
		{
			Name:  "export",
			Usage: "write the combinations or draft order of a stored session as CSV",
			Flags: []cli.Flag{
				dbFlag, idFlag,
				cli.StringFlag{Name: "what", Value: "draft-order", Usage: "combinations or draft-order"},
				cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
			},
			Action: exportCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lotteryctl:", err)
		os.Exit(1)
	}
}

func oddsCmd(c *cli.Context) error {
	n := c.Int("teams")
	odds, err := lottery.OddsFor(n)
	if err != nil {
		return err
	}
	teams := placeholderTeams(n)
	alloc, err := lottery.Allocate(teams, odds)
	if err != nil {
		return err
	}

	var firstPicks map[string]int
	runs := c.Int("runs")
	if runs > 0 {
		firstPicks, err = estimateFirstPick(teams, alloc, machineFor(c.Int64("seed")), runs)
		if err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "RANK\tODDS %\tCOMBINATIONS\tFIRST ID\tLAST ID"
	if runs > 0 {
		header += "\tSIMULATED #1 %"
	}
	fmt.Fprintln(w, header)
	for _, t := range teams {
		ids := alloc.Owned[t.ID]
		line := fmt.Sprintf("%d\t%.1f\t%d\t%d\t%d", t.Rank, odds[t.Rank-1], len(ids), ids[0], ids[len(ids)-1])
		if runs > 0 {
			line += fmt.Sprintf("\t%.2f", 100*float64(firstPicks[t.ID])/float64(runs))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "dead\t\t%d\t\t\n", lottery.TotalCombinations-alloc.AssignedCount())
	return w.Flush()
}

// estimateFirstPick counts which team wins pick 1 over repeated draws
func estimateFirstPick(teams []models.Team, alloc *lottery.Allocation, machine lottery.Machine, runs int) (map[string]int, error) {
	session := &models.LotterySession{Teams: alloc.Apply(teams), Combinations: alloc.Combinations}
	drawer := lottery.NewDrawer(machine)
	counts := make(map[string]int, len(teams))
	for i := 0; i < runs; i++ {
		pick, _, err := drawer.DrawPick(session, 10000)
		if err != nil {
			return nil, err
		}
		counts[pick.TeamID]++
	}
	return counts, nil
}

func simulateCmd(c *cli.Context) error {
	ctx := context.Background()
	svc, closeDB, err := openService(c.String("db"), machineFor(c.Int64("seed")))
	if err != nil {
		return err
	}
	defer closeDB()

	session, err := svc.CreateSession(ctx, operator, services.CreateSessionInput{
		Name:      c.String("name"),
		TeamCount: c.Int("teams"),
	})
	if err != nil {
		return err
	}
	if _, err := svc.OpenVerification(ctx, operator, session.ID); err != nil {
		return err
	}
	if _, err := svc.DrawRemaining(ctx, operator, session.ID); err != nil {
		return err
	}
	order, err := svc.ComposeDraftOrder(ctx, operator, session.ID)
	if err != nil {
		return err
	}
	if _, err := svc.MarkComplete(ctx, operator, session.ID); err != nil {
		return err
	}

	fmt.Printf("session %s\n", session.ID.Hex())
	return printDraftOrder(os.Stdout, order)
}

func showCmd(c *cli.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	svc, closeDB, err := openService(c.String("db"), nil)
	if err != nil {
		return err
	}
	defer closeDB()

	s, err := svc.GetSession(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %q  status=%s  teams=%d  verifiers=%d/%d\n",
		s.ID.Hex(), s.Name, s.Status, len(s.Teams), len(s.Verifiers), s.RequiredVerifierCount)
	for _, p := range s.DrawnPicks {
		fmt.Printf("  drawn pick %d: %s (%s)\n", p.Pick, p.TeamID, lottery.BallsKey(p.Combination.Balls))
	}
	if len(s.DraftOrder) > 0 {
		return printDraftOrder(os.Stdout, s.DraftOrder)
	}
	return nil
}

func exportCmd(c *cli.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	svc, closeDB, err := openService(c.String("db"), nil)
	if err != nil {
		return err
	}
	defer closeDB()

	var out io.Writer = os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch c.String("what") {
	case "combinations":
		return svc.ExportCombinations(context.Background(), id, out)
	case "draft-order":
		return svc.ExportDraftOrder(context.Background(), id, out)
	default:
		return fmt.Errorf("unknown export %q", c.String("what"))
	}
}

func openService(path string, machine lottery.Machine) (*services.LotteryServiceImpl, func(), error) {
	db, err := boltdb.Open(path)
	if err != nil {
		return nil, nil, err
	}
	svc := services.NewLotteryService(boltdb.NewSessionRepository(db), nil, services.LotteryOptions{Machine: machine})
	return svc, func() {
		if err := db.Close(); err != nil {
			zap.L().Warn("closing bolt file", zap.Error(err))
		}
	}, nil
}

func machineFor(seed int64) lottery.Machine {
	if seed == 0 {
		return lottery.NewRandomMachine(nil)
	}
	return lottery.NewRandomMachine(lottery.NewSeededSource(seed))
}

func sessionID(c *cli.Context) (primitive.ObjectID, error) {
	raw := c.String("id")
	if raw == "" {
		return primitive.NilObjectID, fmt.Errorf("--id is required")
	}
	return primitive.ObjectIDFromHex(raw)
}

func placeholderTeams(n int) []models.Team {
	teams := make([]models.Team, n)
	for i := range teams {
		teams[i] = models.Team{ID: fmt.Sprintf("team-%d", i+1), Name: fmt.Sprintf("Team %d", i+1), Rank: i + 1}
	}
	return teams
}

func printDraftOrder(w io.Writer, order []models.DraftPick) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PICK\tTEAM\tCOMBINATION")
	for _, p := range order {
		combo := "N/A"
		if p.Combination != nil {
			combo = lottery.BallsKey(p.Combination.Balls)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Pick, p.TeamName, combo)
	}
	return tw.Flush()
}
