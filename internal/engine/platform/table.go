package platform

// Default is the built-in platform table, newest devices first.
var Default = Table{
	{ProductName: "Roku Ultra", CodeName: "Reno", Model: "4800X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
	{ProductName: "Roku Express 4K", CodeName: "McAllen", Model: "3940X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
	{ProductName: "Roku Streaming Stick 4K", CodeName: "Madison", Model: "3820X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
	{ProductName: "Roku Express", CodeName: "Nemo", Model: "3960X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
	{ProductName: "Roku Ultra", CodeName: "Bryan2", Model: "4670X", ProductionStatus: StatusUpdatable, LatestOSVersion: "13.0"},
	{ProductName: "Roku Ultra", CodeName: "Littlefield", Model: "4640X", ProductionStatus: StatusUpdatable, LatestOSVersion: "12.5"},
	{ProductName: "Roku Express", CodeName: "Amarillo", Model: "3900X", ProductionStatus: StatusUpdatable, LatestOSVersion: "12.5"},
	{ProductName: "Roku Streaming Stick", CodeName: "Sugarland", Model: "3600X", ProductionStatus: StatusUpdatable, LatestOSVersion: "12.0"},
	{ProductName: "Roku 4", CodeName: "Austin", Model: "4400X", ProductionStatus: StatusUpdatable, LatestOSVersion: "10.0"},
	{ProductName: "Roku 3", CodeName: "Tyler", Model: "4200X", ProductionStatus: StatusDiscontinued, LatestOSVersion: "9.2"},
	{ProductName: "Roku TV", CodeName: "Liberty", Model: "5000X", ProductionStatus: StatusUpdatable, LatestOSVersion: "12.5"},
	{ProductName: "4K Roku TV", CodeName: "Longview", Model: "6000X", ProductionStatus: StatusUpdatable, LatestOSVersion: "12.5"},
	{ProductName: "4K Roku TV", CodeName: "Midland", Model: "7000X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
	{ProductName: "Roku TV", CodeName: "Camden", Model: "8000X", ProductionStatus: StatusCurrent, LatestOSVersion: "13.0"},
}
