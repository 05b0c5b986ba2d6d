// Package control provides the tank's PI plus feed-forward heater controller.
//
// [PIFeedForward] implements [sim.Controller]; the tuner's recommended gains
// plug into it directly, which lets a fitted model be checked in closed loop
// before the gains go to the appliance.
//
//	ctrl := control.NewPIFeedForward(kp, ti, kf, setpoint, ambient)
//	s := sim.New(plant.NewModel(params), integrators.NewRK4(), ctrl)
//
// Its parameters can be read and adjusted by name through GetParams and
// SetParam.
package control
