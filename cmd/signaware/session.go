package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"signaware-client/internal/gateway"
	"signaware-client/internal/session"
)

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, err := c.password(*password, *passwordStdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || pw == "" {
		return usagef("login requires --email and a password")
	}

	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Session.Login(ctx, gateway.Credentials{Email: strings.TrimSpace(*email), Password: pw})
	if err != nil {
		return err
	}
	c.printProfile("Signed in as", s.Profile)
	return nil
}

func cmdSignup(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	roleFlag := fs.String("role", "", "legal-professional or individual")
	if err := parse(fs, args); err != nil {
		return err
	}
	pw, err := c.password(*password, *passwordStdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || pw == "" {
		return usagef("signup requires --email and a password")
	}
	data := session.SignupData{Name: *name, Email: strings.TrimSpace(*email), Password: pw}
	if strings.TrimSpace(*roleFlag) != "" {
		role, err := session.ParseRole(*roleFlag)
		if err != nil {
			return usagef("%v", err)
		}
		data.Role = role
	}

	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.Session.Signup(ctx, data)
	if err != nil {
		return err
	}
	c.printProfile("Account created for", s.Profile)
	return nil
}

func cmdGoogle(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("google"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Fprintln(c.stderr, "Opening your browser to sign in with Google...")
	s, err := app.Session.SignInWithGoogle(ctx)
	if err != nil {
		return err
	}
	c.printProfile("Signed in as", s.Profile)
	return nil
}

func cmdLogout(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("logout"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Session.Logout(ctx)
	fmt.Fprintln(c.stdout, "Signed out")
	return nil
}

func cmdWhoami(ctx context.Context, c *cli, args []string) error {
	if err := parse(c.flags("whoami"), args); err != nil {
		return err
	}
	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.Session.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	c.printProfile("Signed in as", p)
	return nil
}

func cmdRole(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("role")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("usage: signaware role <legal-professional|individual>")
	}
	role, err := session.ParseRole(fs.Arg(0))
	if err != nil {
		return usagef("%v", err)
	}

	app, err := c.app(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.Session.UpdateRole(ctx, role)
	if err != nil {
		return err
	}
	c.printProfile("Role updated for", p)
	return nil
}

func (c *cli) password(flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) printProfile(prefix string, p session.Profile) {
	who := p.Email
	if p.Name != "" {
		who = p.Name + " <" + p.Email + ">"
	}
	if p.Role != "" {
		who += " (" + string(p.Role) + ")"
	}
	fmt.Fprintf(c.stdout, "%s %s\n", prefix, who)
}
