// Package sh provides the interactive shell talking to L1 controllers.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	fx "github.com/robotalks/biped.go/pkg/framework"
	"github.com/robotalks/biped.go/pkg/l1"
	env "github.com/robotalks/biped.go/pkg/l1/env/connector"
	"github.com/robotalks/biped.go/pkg/l1/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Loop   *ConnLoop

	watchLock sync.RWMutex
	watching  bool
	watchOnly map[string]bool
}

// ConnLoop is a running loop with a controller connection.
type ConnLoop struct {
	Ctx    context.Context
	Cancel func()
	Ref    l1.ControllerRef
	Loop   *fx.Loop
	Conn   l1.ControllerConn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// DefaultTimeout is the default time waiting for a command result.
const DefaultTimeout = time.Second

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Loop == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints ControllerInfo into friendly string for display.
func FormatInfo(info l1.ControllerInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if len(info.Meta.Labels) > 0 {
		keys := make([]string, 0, len(info.Meta.Labels))
		for key := range info.Meta.Labels {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for n, key := range keys {
			keys[n] = key + "=" + info.Meta.Labels[key]
		}
		fmt.Fprintf(&w, " [%s]", strings.Join(keys, ","))
	}
	return w.String()
}

// MessageName gets the type name of a message.
func MessageName(msg fx.Message) string {
	return reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
}

// FormatMessage formats a message for display.
func (s *Shell) FormatMessage(msg fx.Message) (string, error) {
	serializable, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return "", msgs.ErrNotSerializable
	}
	if s.OutputJSON {
		out, err := json.Marshal(serializable.Serializable())
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		return "OK", nil
	}
	return MessageName(msg) + " " + serializable.Serializable().String(), nil
}

// DoCommand runs a command and waits for result.
func DoCommand(c *ishell.Context, msg fx.Message) (fx.Message, error) {
	s := ShellFrom(c)
	if s.Loop == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return nil, err
	}
	ctx, cancel := context.WithTimeout(s.Loop.Ctx, s.Timeout)
	defer cancel()
	res := l1.Wait(ctx, s.Loop.Conn.DoCommand(msg))
	if res.Err == context.DeadlineExceeded {
		res.Err = fmt.Errorf("command timeout")
	}
	if res.Err != nil {
		c.Err(res.Err)
		return nil, res.Err
	}
	out, err := s.FormatMessage(res.Msg)
	if err != nil {
		c.Err(err)
		return nil, err
	}
	c.Println(out)
	return res.Msg, nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverControllers discovers controllers.
func (s *Shell) DiscoverControllers(filter func(l1.ControllerInfo) bool) (l1.Connector, []l1.ControllerInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, nil, err
	}
	infoList, err := connector.Discover(context.Background())
	if err != nil {
		return connector, nil, err
	}
	if filter != nil {
		items := make([]l1.ControllerInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return connector, infoList, nil
}

// SelectController discovers controllers and asks for a choice.
func (s *Shell) SelectController(filter func(l1.ControllerInfo) bool) (l1.Connector, *l1.ControllerInfo, error) {
	connector, infoList, err := s.DiscoverControllers(filter)
	if err != nil {
		return nil, nil, err
	}
	if len(infoList) == 0 {
		return connector, nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, nil, fmt.Errorf("more than 1 controllers discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}

	return connector, &infoList[index], nil
}

// Connect connects controller with ref. Events from the controller are
// printed while watching.
func (s *Shell) Connect(ref l1.ControllerRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	connLoop := &ConnLoop{Ref: ref}
	connLoop.Ctx, connLoop.Cancel = context.WithCancel(context.Background())
	if connLoop.Conn, err = connector.Connect(connLoop.Ctx, ref); err != nil {
		connLoop.Cancel()
		return err
	}
	connLoop.Loop = fx.NewLoop()
	if adder, ok := connLoop.Conn.(fx.LoopAdder); ok {
		connLoop.Loop.Add(adder)
	}
	connLoop.Loop.AddController(fx.PrLvControl, fx.ControlFunc(s.printEvents))
	s.Disconnect()
	s.Loop = connLoop
	go connLoop.Loop.Run(connLoop.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// Disconnect disconnects current controller.
func (s *Shell) Disconnect() {
	if s.Loop == nil {
		return
	}
	s.Loop.Cancel()
	if closer, ok := s.Loop.Conn.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			glog.Warningf("close %s: %v", s.Loop.Ref.Name(), err)
		}
	}
	s.Loop = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Watch enables printing of events. Only the named message types are
// printed if names is not empty.
func (s *Shell) Watch(names ...string) {
	s.watchLock.Lock()
	defer s.watchLock.Unlock()
	s.watching = true
	s.watchOnly = nil
	if len(names) > 0 {
		s.watchOnly = make(map[string]bool)
		for _, name := range names {
			s.watchOnly[name] = true
		}
	}
}

// Unwatch stops printing events.
func (s *Shell) Unwatch() {
	s.watchLock.Lock()
	s.watching, s.watchOnly = false, nil
	s.watchLock.Unlock()
}

// Watching tells whether events of the named type are printed.
func (s *Shell) Watching(name string) bool {
	s.watchLock.RLock()
	defer s.watchLock.RUnlock()
	return s.watching && (s.watchOnly == nil || s.watchOnly[name])
}

func (s *Shell) printEvents(cc fx.ControlContext) error {
	fx.TakeMessages(cc, func(msg fx.Message) bool {
		if _, ok := msg.(msgs.SerializableMessage); !ok {
			return false
		}
		if !s.Watching(MessageName(msg)) {
			return true
		}
		out, err := s.FormatMessage(msg)
		if err != nil {
			glog.Warningf("format %s: %v", MessageName(msg), err)
			return true
		}
		s.Shell.Println(out)
		return true
	})
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			glog.Exitf("connect %q failed: %v", s.Config.Ref.Name(), err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// DiscoverCmd discovers controllers.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			_, infoList, err := s.DiscoverControllers(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.ControllerInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No controllers found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a controller.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE | TYPE/ID | TYPE ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.ControllerRef
			switch {
			case len(c.Args) >= 2:
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			case len(c.Args) == 1 && strings.Contains(c.Args[0], "/"):
				parsed, err := l1.ParseControllerRef(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				ref = parsed
			default:
				var filter func(l1.ControllerInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.ControllerInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				_, info, err := s.SelectController(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no controller discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects current controller.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// WatchCmd toggles printing of events.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[off | TYPE...]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 1 && c.Args[0] == "off" {
				s.Unwatch()
				return
			}
			s.Watch(c.Args...)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
