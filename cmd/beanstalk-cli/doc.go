// Command beanstalk-cli inspects and manipulates a beanstalkd server.
//
// Settings are read from an optional TOML file given with --config; --addr
// overrides the address.
package main
