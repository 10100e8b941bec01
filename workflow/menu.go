package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/protocol"
)

// ownerFlow handles one selected owner.
type ownerFlow func(ctx context.Context, username string) (next, error)

func (c *Controller) mainMenu(ctx context.Context) error {
	for {
		c.clear()
		c.banner("FACE TRAINING REGISTRATION SYSTEM")
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "1. Register user owner images (new user)")
		fmt.Fprintln(c.out, "2. Add user owner images (existing user)")
		fmt.Fprintln(c.out, "3. Verify user face (face log)")
		fmt.Fprintln(c.out, "4. Keluar")

		choice, err := c.readLine(ctx, "\nChoose menu: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.ownerMenu(ctx, "SELECT USER OWNER", c.registerNew)
		case "2":
			err = c.ownerMenu(ctx, "ADD USER OWNER IMAGES (EXISTING USER)", c.addImages)
		case "3":
			err = c.faceLog(ctx)
		case "4":
			fmt.Fprintln(c.out, "\nThank you! Program finished.")
			return nil
		default:
			fmt.Fprintln(c.out, "Invalid choice!")
			err = c.sleep(ctx, time.Second)
		}
		if err != nil {
			return err
		}
	}
}

// ownerMenu lists the owners and runs flow for the chosen one until the flow
// asks to go back or the user picks the back entry.
func (c *Controller) ownerMenu(ctx context.Context, title string, flow ownerFlow) error {
	for {
		c.clear()
		c.banner(title)

		owners, ok := c.fetchOwners(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return c.waitEnter(ctx, "Press Enter to go back...")
		}

		fmt.Fprintln(c.out, "\nUser owner list:")
		for i, o := range owners {
			fmt.Fprintf(c.out, "%d. %s (%s)\n", i+1, o.Username, o.Email)
		}
		back := len(owners) + 1
		fmt.Fprintf(c.out, "%d. Back to main menu\n", back)

		s, err := c.readLine(ctx, fmt.Sprintf("\nChoose user (1-%d): ", back))
		if err != nil {
			return err
		}
		choice, err := strconv.Atoi(s)
		if err != nil || choice < 1 || choice > back {
			fmt.Fprintln(c.out, "Invalid input!")
			if err := c.sleep(ctx, time.Second); err != nil {
				return err
			}
			continue
		}
		if choice == back {
			return nil
		}

		username := owners[choice-1].Username
		c.log.Info("Owner selected", "username", username)
		res, err := flow(ctx, username)
		if err != nil {
			return err
		}
		if res == backToMain {
			return nil
		}
	}
}

func (c *Controller) fetchOwners(ctx context.Context) ([]protocol.Owner, bool) {
	res, err := c.backend.ListOwners(ctx)
	switch {
	case err != nil:
		c.log.Error("List owners failed", "error", err)
		fmt.Fprintf(c.out, "Error fetching user data: %v\n", err)
	case res.Outcome() != backend.OutcomeOK:
		fmt.Fprintf(c.out, "Error: failed to fetch user data (status %d)\n", res.StatusCode)
	case res.Body == nil || len(*res.Body) == 0:
	default:
		return *res.Body, true
	}
	fmt.Fprintln(c.out, "No user owner data or failed to fetch data")
	return nil, false
}
