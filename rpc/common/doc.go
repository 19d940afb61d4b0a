// Package common provides the types shared by the transports, the response
// server and the command line.
//
// The package focuses on:
//   - Request definition, independent of the transport it arrived on
//   - Configuration of the server and the one-shot responder
//   - Custom logging implementation integrated with the dragonboat logger
//
// Key Components:
//
//   - Request: the requested object type, dataset identifier, constraint
//     expression and the conditional request time. Transports build it from
//     an HTTP request line or from command line flags.
//
//   - ObjectType and EncodingType: the object kinds a response can carry and
//     the content encodings of its body. Their string forms are the values
//     of the Content-Description and Content-Encoding headers.
//
//   - ServerConfig: every setting of the response pipeline, with conversion
//     into the options of the function result cache (ToCacheConfig) and a
//     sectioned String form that the server logs at startup.
//
//   - Logger: a logger.ILogger factory with the "LEVEL | name | message"
//     format. InitLoggers installs it and sets the level of every package
//     logger. The one-shot responder logs to stderr, its stdout carries the
//     response.
package common
