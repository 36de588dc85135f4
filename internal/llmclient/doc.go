// Package llmclient is the transport collaborator for the benchmark
// engine. It builds OpenAI-compatible chat-completion requests, executes
// exactly one physical exchange per Send call, and classifies every
// failure into the engine's taxonomy (connection, timeout, authentication,
// rate limit, server error, malformed).
//
// The client is deliberately dumb about retries: retry policy belongs to
// the engine's classifier, and Send reports each exchange as-is.
//
//	client := llmclient.New(llmclient.Options{
//		Endpoint: "https://llm.example.com",
//		APIKey:   "sk-...",
//		Model:    "gpt-4o",
//		Timeout:  30 * time.Second,
//	}, tracingProvider)
//	attempt, err := client.Send(ctx, "Tell me a short joke")
//
// A 2xx response whose body lacks choices[0].message.content counts as a
// malformed failure: the transport exchange worked, the payload did not.
package llmclient
