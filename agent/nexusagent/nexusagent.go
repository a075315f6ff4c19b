// Package nexusagent lets an External-tract particle run out of
// process, invoked over Nexus RPC instead of dispatched in-process
// through a locally-registered agent.Consumer.
//
// Grounded on the Caller/server split in runtime/a2a:
// a2a.Caller lets a generated skill adapter stand in for an
// in-process tool by forwarding the call to a remote A2A server over
// HTTP/JSON-RPC. nexusagent.RemoteProcessor plays the same role for an
// agent.Processor, using github.com/nexus-rpc/sdk-go as the transport
// instead of a2a's bespoke JSON-RPC envelope, since this module has no
// equivalent of A2A's skill-suite addressing and only needs to carry a
// single Task out and a single ExecutionResult back.
package nexusagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nexus-rpc/sdk-go/nexus"

	"github.com/synapse-systems/corpuscallosum/agent"
	"github.com/synapse-systems/corpuscallosum/message"
)

// OperationName identifies the Nexus operation a remote particle's
// handler registers and a RemoteProcessor invokes.
const OperationName = "corpuscallosum.process_task"

// taskWire is the JSON shape carried over Nexus: only the Task itself,
// since that is all a remote agent.Processor needs to compute a result
// (see message.TaskEnvelope; OrchestratorRef stays local to the caller's
// process and is never sent over the wire).
type taskWire struct {
	Task message.Task `json:"task"`
}

// resultWire is the JSON shape returned by the remote handler: the raw
// output of Processor.ProcessMessage, JSON-encoded so it survives the
// process boundary regardless of its concrete Go type.
type resultWire struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewService wraps processor in a Nexus Service exposing it as a single
// synchronous operation. Pass the resulting Service to
// nexus.NewHTTPHandler to serve it.
func NewService(serviceName string, processor agent.Processor) (*nexus.Service, error) {
	svc := nexus.NewService(serviceName)
	op := nexus.NewSyncOperation(OperationName, func(ctx context.Context, in taskWire, _ nexus.StartOperationOptions) (resultWire, error) {
		env := message.TaskEnvelope{Task: in.Task}
		msg, err := message.New(0, message.External, message.External, message.Normal, 0, env, 0)
		if err != nil {
			return resultWire{}, fmt.Errorf("nexusagent: build message: %w", err)
		}
		out, err := processor.ProcessMessage(ctx, msg)
		if err != nil {
			return resultWire{Error: err.Error()}, nil
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return resultWire{}, fmt.Errorf("nexusagent: marshal result: %w", err)
		}
		return resultWire{Output: raw}, nil
	})
	if err := svc.Register(op); err != nil {
		return nil, fmt.Errorf("nexusagent: register operation: %w", err)
	}
	return svc, nil
}

// Handler builds an http.Handler serving processor as a Nexus endpoint
// under serviceName.
func Handler(serviceName string, processor agent.Processor) (http.Handler, error) {
	svc, err := NewService(serviceName, processor)
	if err != nil {
		return nil, err
	}
	reg := nexus.NewServiceRegistry()
	if err := reg.Register(svc); err != nil {
		return nil, fmt.Errorf("nexusagent: register service: %w", err)
	}
	h, err := nexus.NewHTTPHandler(nexus.HandlerOptions{Registry: reg})
	if err != nil {
		return nil, fmt.Errorf("nexusagent: build http handler: %w", err)
	}
	return h, nil
}

// RemoteProcessor implements agent.Processor by invoking a remote
// particle's ProcessMessage over Nexus RPC, so Orchestrator.
// RegisterAgentConsumer can register an out-of-process particle exactly
// as it would an in-process one.
type RemoteProcessor struct {
	client      *nexus.HTTPClient
	serviceName string
}

// NewRemoteProcessor builds a RemoteProcessor that calls baseURL's
// Nexus endpoint for serviceName.
func NewRemoteProcessor(baseURL, serviceName string) (*RemoteProcessor, error) {
	client, err := nexus.NewHTTPClient(nexus.HTTPClientOptions{BaseURL: baseURL, Service: serviceName})
	if err != nil {
		return nil, fmt.Errorf("nexusagent: build http client: %w", err)
	}
	return &RemoteProcessor{client: client, serviceName: serviceName}, nil
}

// ProcessMessage implements agent.Processor by forwarding msg's
// message.TaskEnvelope to the remote particle and decoding its result.
// A payload that is not a TaskEnvelope is not meaningful to forward (the
// remote side only knows how to process Tasks), so it is rejected
// locally rather than sent over the wire.
func (r *RemoteProcessor) ProcessMessage(ctx context.Context, msg message.Message) (any, error) {
	env, ok := msg.Payload().(message.TaskEnvelope)
	if !ok {
		return nil, fmt.Errorf("nexusagent: payload %s is not forwardable over Nexus", msg.PayloadTypeTag())
	}

	result, err := r.client.ExecuteOperation(ctx, nexus.ExecuteOperationOptions{
		Operation: OperationName,
		Input:     taskWire{Task: env.Task},
	})
	if err != nil {
		return nil, fmt.Errorf("nexusagent: execute operation: %w", err)
	}

	var out resultWire
	if err := result.Consume(&out); err != nil {
		return nil, fmt.Errorf("nexusagent: decode result: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("nexusagent: remote particle error: %s", out.Error)
	}
	var decoded any
	if len(out.Output) > 0 {
		if err := json.Unmarshal(out.Output, &decoded); err != nil {
			return nil, fmt.Errorf("nexusagent: unmarshal result: %w", err)
		}
	}
	return decoded, nil
}
