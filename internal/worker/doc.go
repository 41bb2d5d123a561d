// Package worker offloads task execution to isolated workers that speak a
// line-delimited JSON protocol.
//
// A request is a single line:
//
//	{"kind":"run","circuitId":"execution","artifacts":{...},"input":{...}}
//
// and the worker answers with zero or more log lines followed by exactly one
// result line for the same circuit id:
//
//	{"kind":"log","circuitId":"execution","text":"Proving execution..."}
//	{"kind":"result","circuitId":"execution","result":{"circuitId":"execution","ok":true,...}}
//
// Workers handle one request at a time. They run either as a goroutine
// connected through io.Pipe or as a subprocess connected through its stdin
// and stdout. A Client is the caller's side of one worker and implements
// task.Runner, so the scheduler treats offloaded and inline execution alike.
package worker
