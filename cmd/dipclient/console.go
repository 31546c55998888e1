package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/dipclient/internal/builder"
	"github.com/DoyleJ11/dipclient/internal/lobbysync"
	"github.com/DoyleJ11/dipclient/internal/mapinput"
	"github.com/DoyleJ11/dipclient/internal/orders"
)

const help = `commands:
  select LOC          pick a unit, province or coast (same as a map click on it)
  click X Y           click the map at X,Y
  order TYPE          start an order: hold move support_hold support_move convoy
                      retreat build disband waive (or H - S C R B D W)
  choose N            pick candidate N from the list
  map                 list the clickable map locations
  cancel              drop the order in progress
  remove LOC          delete the built order for LOC
  clear               delete every built order
  submit [wait]       send the phase's orders
  start               start the lobby (host)
  process             force the phase to resolve (host)
  status | refresh | help | quit`

type console struct {
	sync    *lobbysync.Sync
	adapter *mapinput.Adapter
	in      io.Reader
	out     io.Writer
}

func (c *console) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, help)
	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.exec(ctx, strings.Fields(line))
			if err != nil {
				fmt.Fprintln(c.out, "error:", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *console) exec(ctx context.Context, args []string) (quit bool, err error) {
	if len(args) == 0 {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var reply lobbysync.BuildReply
	switch cmd := strings.ToLower(args[0]); cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(c.out, help)
		return false, nil
	case "status":
		return false, c.status(ctx)
	case "refresh":
		if err := c.sync.Tick(ctx); err != nil {
			return false, err
		}
		return false, c.status(ctx)
	case "map":
		regions := c.adapter.Regions()
		if len(regions) == 0 {
			fmt.Fprintln(c.out, "no map layout loaded (set DIP_MAP_LAYOUT)")
			return false, nil
		}
		fmt.Fprintln(c.out, strings.Join(regions, " "))
		return false, nil
	case "select":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: select LOC")
		}
		reply, err = c.sync.Extend(ctx, args[1])
	case "click":
		if len(args) != 3 {
			return false, fmt.Errorf("usage: click X Y")
		}
		x, errX := strconv.ParseFloat(args[1], 64)
		y, errY := strconv.ParseFloat(args[2], 64)
		if errX != nil || errY != nil {
			return false, fmt.Errorf("click needs two numbers")
		}
		reply, err = c.adapter.Handle(ctx, mapinput.Click(x, y))
	case "choose":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: choose N")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil || n < 1 {
			return false, fmt.Errorf("choose needs a number from the list")
		}
		reply, err = c.adapter.Handle(ctx, mapinput.Choose(n))
	case "order":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: order TYPE")
		}
		t, ok := orders.ParseType(args[1])
		if !ok {
			return false, fmt.Errorf("unknown order type %q", args[1])
		}
		reply, err = c.sync.Begin(ctx, t)
	case "cancel":
		reply, err = c.sync.Cancel(ctx)
	case "remove":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: remove LOC")
		}
		return false, c.sync.RemoveOrder(ctx, strings.ToUpper(args[1]))
	case "clear":
		return false, c.sync.ClearOrders(ctx)
	case "submit":
		wait := len(args) > 1 && strings.EqualFold(args[1], "wait")
		results, err := c.sync.Submit(ctx, wait)
		for _, r := range results {
			if r.Accepted() {
				fmt.Fprintf(c.out, "  ok       %s\n", r.Text)
			} else {
				fmt.Fprintf(c.out, "  rejected %s: %s\n", r.Text, r.Reason)
			}
		}
		return false, err
	case "start":
		return false, c.sync.StartGame(ctx)
	case "process":
		res, err := c.sync.Process(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "%s -> %s\n", res.PreviousPhase, res.NewPhase)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	if err != nil {
		return false, err
	}
	c.printReply(reply)
	return false, nil
}

func (c *console) printReply(reply lobbysync.BuildReply) {
	for _, ev := range reply.Events {
		switch ev.Type {
		case builder.EvtUnitSelected:
			fmt.Fprintf(c.out, "selected %s\n", ev.Token)
		case builder.EvtPathExtended:
			fmt.Fprintf(c.out, "  + %s\n", ev.Token)
		case builder.EvtDisambiguationRequested:
			fmt.Fprintln(c.out, "which one?")
			for i, ch := range ev.Candidates {
				fmt.Fprintf(c.out, "  %d) %s\n", i+1, ch.Label)
			}
		case builder.EvtOrderCompleted:
			fmt.Fprintf(c.out, "built: %s\n", ev.Order.Text())
		case builder.EvtCancelled:
			fmt.Fprintln(c.out, "cancelled")
		}
	}
	if reply.Session.State == builder.StateSelectingType && len(reply.LegalTypes) > 0 {
		names := make([]string, len(reply.LegalTypes))
		for i, t := range reply.LegalTypes {
			names[i] = string(t)
		}
		fmt.Fprintf(c.out, "order types: %s\n", strings.Join(names, " "))
	}
}

func (c *console) status(ctx context.Context) error {
	v, err := c.sync.View(ctx)
	if err != nil {
		return err
	}
	switch {
	case v.Lobby == nil:
		fmt.Fprintf(c.out, "lobby %s: not synced yet\n", v.Code)
	case v.Phase == "":
		fmt.Fprintf(c.out, "lobby %s: %s, %d players\n", v.Code, v.Lobby.Status, len(v.Lobby.Players))
	default:
		who := v.Power
		if v.Observer {
			who = "observer"
		}
		fmt.Fprintf(c.out, "lobby %s: %s as %s, orders %s\n", v.Code, v.Phase, who, v.SubmissionStatus)
	}
	if len(v.Orderable) > 0 {
		fmt.Fprintf(c.out, "orderable: %s\n", strings.Join(v.Orderable, " "))
	}
	origins := make([]string, 0, len(v.Orders))
	for origin := range v.Orders {
		origins = append(origins, origin)
	}
	slices.Sort(origins)
	for _, origin := range origins {
		fmt.Fprintf(c.out, "  %s\n", v.Orders[origin])
	}
	for _, n := range v.Notices {
		fmt.Fprintf(c.out, "! %s\n", n.Text)
	}
	if v.LastFetchError != "" {
		fmt.Fprintf(c.out, "last poll failed (%d in a row): %s\n", v.ConsecutiveFailures, v.LastFetchError)
	}
	return nil
}
