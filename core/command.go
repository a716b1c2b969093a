package core

import (
	"sync"

	"escdrive/protocol"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command is one entry of the link command table
type Command struct {
	ID      uint16
	Name    string
	Format  string
	Handler CommandHandler // nil for responses
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand registers a command handler on the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// Register adds a command to the registry. IDs follow registration order
// and a name registered twice keeps its first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// Lookup returns the ID registered for a name
func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	return id, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return protocol.ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// DispatchCommand is a convenience function using the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}

// ResponseSender queues a response block on the link
type ResponseSender func(cmdID uint16, args func(output protocol.OutputBuffer))

var responseSender ResponseSender

// SetResponseSender is called by targets once their link exists
func SetResponseSender(sender ResponseSender) {
	responseSender = sender
}

// SendResponse sends a registered response by name
func (r *CommandRegistry) SendResponse(name string, args func(output protocol.OutputBuffer)) {
	if responseSender == nil {
		return
	}
	id, ok := r.Lookup(name)
	if !ok {
		DebugPrintln("[CMD] unregistered response " + name)
		return
	}
	responseSender(id, args)
}
