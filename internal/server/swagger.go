package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Rotulo API
// @version 0.1
// @description Allergen exposure-risk scoring over product barcodes.
// @BasePath /
