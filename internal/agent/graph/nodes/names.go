package nodes

const (
	NodeDecide            = "decide"
	NodeZipLookup         = "zip_lookup"
	NodeZipWeather        = "zip_weather"
	NodeWeatherDirect     = "weather_direct"
	NodeDirectReply       = "direct_reply"
	NodeResponseAssembler = "response_assembler"
	NodeResponseChatModel = "response_chat_model"
	NodeToolExecutor      = "tool_executor"
	NodeFinalize          = "finalize"
)
