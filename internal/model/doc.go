// Package model defines the wire and storage types shared by the onionboard
// backend, its API client and the terminal dashboard.
//
// JSON tags follow the names served by the REST API. Note that UserAgent
// uses an upper-case "ID" key on the wire while every other resource uses "id".
package model
