package main

//go:generate swag init -g cmd/forecaster/main.go -o docs

// @title           Revenue Pace Forecaster API
// @version         0.1.0
// @description     Booking-pace reconstruction, pickup forecasting, and backtesting.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
