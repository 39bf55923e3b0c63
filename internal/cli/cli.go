// Package cli implements the interactive command loop. It holds no
// persistent state of its own; every command is parsed here and handed
// to the directory, messaging, and auth services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/JosuaGoecking/Messenger/internal/domain"
	"github.com/JosuaGoecking/Messenger/internal/service"
)

const usage = `Messenger. Create users and groups and communicate with each other.

Commands:
    help                                    Print this message.
    hello, hi, greet, greetings             Greet the program and be greeted back (by name if logged in).
    x+a*y                                   With x,y,a being numbers. Prints out the result.
    say <output>                            Print out <output>.
    create
        - user <user>                       Create a new user with name <user>.
        - group <group> [<member1> ...]     Create a new group, optionally with members.
    add members to <group>: <member1> ...   Add users to the group <group>.
    login <user>                            Login as user <user>.
    logout                                  Logout current user.
    print
        - <file>                            Print out the file <file>.
        - messages                          Print out all messages of the current user.
        - users                             Print out all users.
        - groups                            Print out all groups.
        - groups of <user>                  Print out all groups of the user <user>.
        - members of <group>                Print out all members of the group <group>.
    send to
        - <user>: <message>                 Send <message> to the user <user>.
        - <group>: <message>                Send <message> to the group <group>.
    sync                                    Print out messages received after login.
    delete
        - user <user>                       Delete the user <user>.
        - group <group>                     Delete the group <group>.
        - member from <group>: <member>     Delete the user <member> from the group <group>.

To quit type one of: stop, quit, cancel, q, end, :q, exit.`

var (
	quitWords  = []string{"stop", "quit", "cancel", "q", "end", ":q", "exit"}
	greetWords = []string{"hello", "hi", "greet", "greetings"}
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(b), err
}

// App is one interactive session over the services.
type App struct {
	scanner   *bufio.Scanner
	out       io.Writer
	directory *service.DirectoryService
	messaging *service.MessagingService
	auth      *service.AuthService
	user      string
}

// New creates an App reading commands from in and writing to out.
func New(in io.Reader, out io.Writer, directory *service.DirectoryService, messaging *service.MessagingService, auth *service.AuthService) *App {
	return &App{
		scanner:   bufio.NewScanner(in),
		out:       out,
		directory: directory,
		messaging: messaging,
		auth:      auth,
	}
}

// Run processes commands until a quit word or end of input.
func (a *App) Run(ctx context.Context) error {
	for {
		fmt.Fprint(a.out, a.prompt())
		if !a.scanner.Scan() {
			return a.scanner.Err()
		}
		line := strings.TrimSpace(a.scanner.Text())
		if line == "" {
			continue
		}
		if slices.Contains(quitWords, strings.ToLower(line)) {
			return nil
		}
		a.dispatch(ctx, line)
	}
}

// LoginAs runs the login flow for name before the loop starts, used for
// the optional user argument on the command line.
func (a *App) LoginAs(ctx context.Context, name string) {
	a.login(ctx, name)
}

func (a *App) prompt() string {
	if a.user != "" {
		return a.user + ":messenger# "
	}
	return "messenger# "
}

func (a *App) dispatch(ctx context.Context, line string) {
	lower := strings.ToLower(line)

	switch {
	case line[0] >= '0' && line[0] <= '9':
		a.evalExpression(line)
		return
	case slices.Contains(greetWords, lower):
		a.greet()
		return
	case lower == "help":
		fmt.Fprintln(a.out, usage)
		return
	case lower == "logout":
		a.logout(ctx)
		return
	case lower == "sync":
		a.sync(ctx)
		return
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		fmt.Fprintf(a.out, "%s: command not found. Type 'help' for usage.\n", lower)
		return
	}

	switch strings.ToLower(fields[0]) {
	case "say":
		fmt.Fprintln(a.out, strings.Join(fields[1:], " "))
	case "print":
		a.print(ctx, fields)
	case "login":
		a.login(ctx, fields[1])
	case "create":
		a.create(ctx, fields)
	case "delete":
		a.delete(ctx, line, fields)
	case "send":
		a.send(ctx, line)
	case "add":
		a.addMembers(ctx, line, fields)
	default:
		fmt.Fprintf(a.out, "%s: command not found. Type 'help' for usage.\n", fields[0])
	}
}

func (a *App) greet() {
	if a.user != "" {
		fmt.Fprintf(a.out, "Hello %s.\n", a.user)
	} else {
		fmt.Fprintln(a.out, "Hello.")
	}
}

func (a *App) evalExpression(exp string) {
	if v, err := strconv.ParseFloat(exp, 64); err == nil {
		fmt.Fprintf(a.out, "%g\n", v)
		return
	}
	v, err := Calc(exp)
	if err != nil {
		fmt.Fprintf(a.out, "calc: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "%g\n", v)
}

func (a *App) login(ctx context.Context, name string) {
	exists, err := a.directory.UserExists(ctx, name)
	if err != nil {
		fmt.Fprintf(a.out, "login: %v\n", err)
		return
	}
	if !exists {
		fmt.Fprintf(a.out, "The user %s does not exist. Do you want to create it?\n", name)
		if a.promptLine("[y/n]: ") != "y" {
			return
		}
		if !a.createUser(ctx, name) {
			return
		}
	}

	valid, err := a.auth.TicketValid(ctx, name)
	if err != nil {
		fmt.Fprintf(a.out, "login: %v\n", err)
		return
	}
	if !valid {
		password, err := a.promptPassword("Password: ")
		if err != nil {
			fmt.Fprintf(a.out, "login: %v\n", err)
			return
		}
		if err := a.auth.Login(ctx, name, password); err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				fmt.Fprintln(a.out, "Invalid Password")
			} else {
				fmt.Fprintf(a.out, "login: %v\n", err)
			}
			return
		}
	}

	a.user = name
	fmt.Fprintf(a.out, "%s logged in.\n", name)
	a.sync(ctx)
}

func (a *App) logout(ctx context.Context) {
	if a.user == "" {
		return
	}
	if err := a.auth.Logout(ctx, a.user); err != nil {
		fmt.Fprintf(a.out, "logout: %v\n", err)
		return
	}
	a.user = ""
}

func (a *App) sync(ctx context.Context) {
	if a.user == "" {
		fmt.Fprintln(a.out, "You need to be logged in to do this.")
		return
	}
	messages, err := a.messaging.Sync(ctx, a.user)
	if err != nil {
		fmt.Fprintf(a.out, "sync: %v\n", err)
		return
	}
	if len(messages) == 0 {
		fmt.Fprintln(a.out, "No new messages.")
		return
	}
	for _, msg := range messages {
		fmt.Fprintln(a.out, msg)
	}
}

func (a *App) print(ctx context.Context, fields []string) {
	switch strings.ToLower(fields[1]) {
	case "messages":
		if a.user == "" {
			fmt.Fprintln(a.out, "You need to be logged in to do this.")
			return
		}
		messages, err := a.messaging.History(ctx, a.user)
		if err != nil {
			fmt.Fprintf(a.out, "print: %v\n", err)
			return
		}
		if len(messages) == 0 {
			fmt.Fprintln(a.out, "No messages.")
			return
		}
		for _, msg := range messages {
			fmt.Fprintln(a.out, msg.Body)
		}
	case "users":
		users, err := a.directory.Users(ctx)
		if err != nil {
			fmt.Fprintf(a.out, "print: %v\n", err)
			return
		}
		for _, user := range users {
			fmt.Fprintln(a.out, user)
		}
	case "groups":
		if len(fields) >= 4 && strings.ToLower(fields[2]) == "of" {
			a.printGroupsOf(ctx, fields[3])
			return
		}
		groups, err := a.directory.Groups(ctx)
		if err != nil {
			fmt.Fprintf(a.out, "print: %v\n", err)
			return
		}
		if len(groups) == 0 {
			fmt.Fprintln(a.out, "No groups")
			return
		}
		for _, group := range groups {
			fmt.Fprintln(a.out, group)
		}
	case "members":
		if len(fields) < 4 {
			fmt.Fprintln(a.out, "print: no group provided. Type 'help' for usage.")
			return
		}
		members, err := a.directory.Members(ctx, fields[3])
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintf(a.out, "The group %s does not exist.\n", fields[3])
			} else {
				fmt.Fprintf(a.out, "print: %v\n", err)
			}
			return
		}
		for _, member := range members {
			fmt.Fprintln(a.out, member)
		}
	default:
		a.printFile(fields[1])
	}
}

func (a *App) printGroupsOf(ctx context.Context, user string) {
	exists, err := a.directory.UserExists(ctx, user)
	if err != nil {
		fmt.Fprintf(a.out, "print: %v\n", err)
		return
	}
	if !exists {
		fmt.Fprintf(a.out, "The user %s does not exist.\n", user)
		return
	}
	groups, err := a.directory.GroupsOf(ctx, user)
	if err != nil {
		fmt.Fprintf(a.out, "print: %v\n", err)
		return
	}
	for _, group := range groups {
		fmt.Fprintln(a.out, group)
	}
}

func (a *App) printFile(name string) {
	data, err := os.ReadFile(name)
	if err != nil {
		fmt.Fprintln(a.out, "File was not found. Make sure you typed it as /path/to/file.")
		return
	}
	fmt.Fprintln(a.out, string(data))
}

func (a *App) create(ctx context.Context, fields []string) {
	switch strings.ToLower(fields[1]) {
	case "user":
		if len(fields) < 3 {
			fmt.Fprintln(a.out, "create: no user name provided. Type 'help' for usage.")
			return
		}
		a.createUser(ctx, fields[2])
	case "group":
		if len(fields) < 3 {
			fmt.Fprintln(a.out, "create: no group name provided. Type 'help' for usage.")
			return
		}
		a.createGroup(ctx, fields[2], fields[3:])
	default:
		fmt.Fprintf(a.out, "create: unknown parameter %q. Type 'help' for usage.\n", fields[1])
	}
}

// createUser prompts for the password twice and retries on mismatch.
// Reports whether the user was created.
func (a *App) createUser(ctx context.Context, name string) bool {
	for {
		password, err := a.promptPassword("Password: ")
		if err != nil {
			fmt.Fprintf(a.out, "create: %v\n", err)
			return false
		}
		check, err := a.promptPassword("Repeat Password: ")
		if err != nil {
			fmt.Fprintf(a.out, "create: %v\n", err)
			return false
		}
		if password != check {
			fmt.Fprintln(a.out, "Passwords do not match. Try again.")
			continue
		}

		err = a.directory.CreateUser(ctx, name, password)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			fmt.Fprintf(a.out, "A user with the name %s does already exist. Choose a different username.\n", name)
			return false
		case errors.Is(err, domain.ErrInvalidInput):
			fmt.Fprintf(a.out, "create: %v\n", err)
			return false
		case err != nil:
			fmt.Fprintf(a.out, "create: %v\n", err)
			return false
		}
		return true
	}
}

func (a *App) createGroup(ctx context.Context, name string, members []string) {
	outcomes, err := a.directory.CreateGroup(ctx, name, members)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		fmt.Fprintln(a.out, "A group with this name does already exist. Choose a different group name.")
		return
	case err != nil:
		fmt.Fprintf(a.out, "create: %v\n", err)
		return
	}
	a.reportOutcomes(name, outcomes)
}

func (a *App) addMembers(ctx context.Context, line string, fields []string) {
	if strings.ToLower(fields[1]) != "members" {
		fmt.Fprintf(a.out, "add: unknown parameter %q. Type 'help' for usage.\n", fields[1])
		return
	}
	meta, rest, ok := strings.Cut(line, ":")
	metaFields := strings.Fields(meta)
	if !ok || len(metaFields) < 4 {
		fmt.Fprintln(a.out, "add: missing data. Type 'help' for usage.")
		return
	}
	group := metaFields[3]

	outcomes, err := a.directory.AddMembers(ctx, group, strings.Fields(rest))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		fmt.Fprintf(a.out, "The group %s does not exist.\n", group)
		return
	case err != nil:
		fmt.Fprintf(a.out, "add: %v\n", err)
		return
	}
	a.reportOutcomes(group, outcomes)
}

func (a *App) reportOutcomes(group string, outcomes []service.MemberOutcome) {
	for _, outcome := range outcomes {
		switch outcome.Status {
		case service.MemberUnknownUser:
			fmt.Fprintf(a.out, "User %s not added: does not exist. To create it type 'create user %s'.\n", outcome.Name, outcome.Name)
		case service.MemberAlreadyPresent:
			fmt.Fprintf(a.out, "%s is already a member of %s\n", outcome.Name, group)
		}
	}
}

func (a *App) delete(ctx context.Context, line string, fields []string) {
	switch strings.ToLower(fields[1]) {
	case "user":
		if len(fields) < 3 {
			fmt.Fprintln(a.out, "delete: no user name provided. Type 'help' for usage.")
			return
		}
		a.deleteUser(ctx, fields[2])
	case "group":
		if len(fields) < 3 {
			fmt.Fprintln(a.out, "delete: no group name provided. Type 'help' for usage.")
			return
		}
		a.deleteGroup(ctx, fields[2])
	case "member":
		a.deleteMember(ctx, line)
	default:
		fmt.Fprintf(a.out, "delete: unknown parameter %q. Type 'help' for usage.\n", fields[1])
	}
}

func (a *App) deleteUser(ctx context.Context, name string) {
	exists, err := a.directory.UserExists(ctx, name)
	if err != nil {
		fmt.Fprintf(a.out, "delete: %v\n", err)
		return
	}
	if !exists {
		fmt.Fprintf(a.out, "The user %s does not exist.\n", name)
		return
	}

	password, err := a.promptPassword(name + "'s Password: ")
	if err != nil {
		fmt.Fprintf(a.out, "delete: %v\n", err)
		return
	}
	err = a.directory.DeleteUser(ctx, name, password)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintln(a.out, "Invalid Password")
	case errors.Is(err, domain.ErrNotFound):
		fmt.Fprintf(a.out, "The user %s does not exist.\n", name)
	case err != nil:
		fmt.Fprintf(a.out, "delete: %v\n", err)
	default:
		fmt.Fprintf(a.out, "User %s has been deleted.\n", name)
		if name == a.user {
			a.user = ""
		}
	}
}

func (a *App) deleteGroup(ctx context.Context, name string) {
	err := a.directory.DeleteGroup(ctx, name, a.user)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized):
		fmt.Fprintf(a.out, "You cannot delete the group %s (doesn't exist or you're not authorized).\n", name)
	case err != nil:
		fmt.Fprintf(a.out, "delete: %v\n", err)
	default:
		fmt.Fprintf(a.out, "The group %s has been deleted.\n", name)
	}
}

func (a *App) deleteMember(ctx context.Context, line string) {
	if a.user == "" {
		fmt.Fprintln(a.out, "You need to be logged in to do this.")
		return
	}
	meta, rest, ok := strings.Cut(line, ":")
	metaFields := strings.Fields(meta)
	member := strings.TrimSpace(rest)
	if !ok || len(metaFields) < 4 || member == "" {
		fmt.Fprintln(a.out, "delete: missing data. Type 'help' for usage.")
		return
	}
	if err := a.directory.RemoveMember(ctx, metaFields[3], member); err != nil {
		fmt.Fprintf(a.out, "delete: %v\n", err)
	}
}

func (a *App) send(ctx context.Context, line string) {
	meta, msg, ok := strings.Cut(line, ":")
	metaFields := strings.Fields(meta)
	msg = strings.TrimPrefix(msg, " ")
	if !ok || msg == "" || len(metaFields) < 3 {
		fmt.Fprintln(a.out, "send: no recipient or message provided. Type 'help' for usage.")
		return
	}
	recipient := metaFields[2]

	if err := a.messaging.Send(ctx, a.user, recipient, msg); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintln(a.out, "Recipient or sender does not exist.")
		} else {
			fmt.Fprintf(a.out, "send: %v\n", err)
		}
	}
}

func (a *App) promptLine(prompt string) string {
	fmt.Fprint(a.out, prompt)
	if !a.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(a.scanner.Text())
}

func (a *App) promptPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	password, err := readPassword()
	fmt.Fprintln(a.out)
	return password, err
}
