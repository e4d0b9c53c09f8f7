package main

import (
	"fmt"
	"log"

	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for SmartTransit bookings")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}
	webhookSecret, err := utils.GenerateSecret(32)
	if err != nil {
		log.Fatalf("Failed to generate webhook secret: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("WEBHOOK_SECRET=%s\n", webhookSecret)
	fmt.Println()
	fmt.Println("The webhook secret must also be configured at the payment provider.")
	fmt.Println("===========================================")
}
